package storage

import (
	"context"

	"feedhub/internal/observability"
)

// Instrumented counts store calls by backend and outcome.
type Instrumented struct {
	ImageStore
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (s Instrumented) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	ref, err := s.ImageStore.Save(ctx, name, contentType, data)
	observability.ImageStoreOps.WithLabelValues(s.Backend(), "save", outcome(err)).Inc()
	return ref, err
}

func (s Instrumented) Delete(ctx context.Context, ref string) error {
	err := s.ImageStore.Delete(ctx, ref)
	observability.ImageStoreOps.WithLabelValues(s.Backend(), "delete", outcome(err)).Inc()
	return err
}
