package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"feedhub/internal/observability"
)

// Broadcaster publishes post events. Delivery is best-effort and at most once.
type Broadcaster interface {
	Broadcast(ctx context.Context, ev Event) error
}

// Sink is a named Broadcaster that can be combined in a Fanout.
type Sink interface {
	Broadcaster
	Name() string
}

// ErrBroadcasterNotInitialized is returned by Active before Init.
var ErrBroadcasterNotInitialized = errors.New("notifications: broadcaster not initialized")

var (
	activeMu sync.RWMutex
	active   Broadcaster
)

// Init installs b as the process-wide broadcaster. Passing nil clears it.
func Init(b Broadcaster) {
	activeMu.Lock()
	active = b
	activeMu.Unlock()
}

// Active returns the broadcaster installed by Init.
func Active() (Broadcaster, error) {
	activeMu.RLock()
	defer activeMu.RUnlock()
	if active == nil {
		return nil, ErrBroadcasterNotInitialized
	}
	return active, nil
}

// Fanout sends every event to each sink. One failing sink does not stop the
// others; their errors are joined.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Sinks lists the sink names in delivery order.
func (f *Fanout) Sinks() []string {
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name())
	}
	return names
}

func (f *Fanout) Broadcast(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Broadcast(ctx, ev); err != nil {
			observability.BroadcastsTotal.WithLabelValues(s.Name(), "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		observability.BroadcastsTotal.WithLabelValues(s.Name(), "ok").Inc()
	}
	return errors.Join(errs...)
}

// Close closes every sink that holds resources.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
