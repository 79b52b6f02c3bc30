package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/repository"
	"feedhub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testTokens = TokenConfig{
	Secret:   "test-secret-that-is-long-enough-for-hs256",
	Issuer:   "feedhub-api",
	Audience: "feedhub-client",
}

// recordingBroadcaster collects every event it is handed.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, ev notifications.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingBroadcaster) Events() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

// seedUser inserts a user with a cheap hash so tests stay fast.
func seedUser(t *testing.T, db *gorm.DB, email, name, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{Email: email, Name: name, Password: string(hash), Status: models.DefaultStatus}
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), u))
	return u
}

func requireAppError(t *testing.T, err error, kind models.ErrorKind) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, kind, appErr.Kind)
	return appErr
}

func fieldNames(appErr *models.AppError) []string {
	names := make([]string, 0, len(appErr.ValidationErrors))
	for _, fe := range appErr.ValidationErrors {
		names = append(names, fe.Field)
	}
	return names
}

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewTestDB(t)
}
