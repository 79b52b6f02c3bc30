package service

import (
	"context"
	"testing"
	"time"

	"feedhub/internal/models"
	"feedhub/internal/repository"
	"feedhub/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*AuthService, repository.UserRepository) {
	t.Helper()
	repo := repository.NewUserRepository(newTestDB(t))
	return NewAuthService(repo, testTokens), repo
}

func TestAuthService_SignupThenLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, validation.SignupInput{Email: " A@B.com ", Password: "Secret123", Name: "Ann"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, models.DefaultStatus, user.Status)
	assert.NotEqual(t, "Secret123", user.Password)

	token, loggedIn, err := svc.Login(ctx, validation.LoginInput{Email: "a@b.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	var claims Claims
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, user.ID, claims.UserID)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthService_SignupDuplicateEmail(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()
	in := validation.SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Ann"}

	_, err := svc.Signup(ctx, in)
	require.NoError(t, err)

	_, err = svc.Signup(ctx, in)
	appErr := requireAppError(t, err, models.KindValidation)
	assert.Equal(t, 422, appErr.StatusCode())
	assert.Equal(t, models.CodeEmailTaken, appErr.Code)
	assert.Equal(t, []string{"email"}, fieldNames(appErr))
	assert.Equal(t, "Email already exists", appErr.ValidationErrors[0].Message)

	existing, err := repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.NotNil(t, existing)
}

func TestAuthService_SignupReportsEveryViolation(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Signup(context.Background(), validation.SignupInput{Email: "nope", Password: "short", Name: "A1"})
	appErr := requireAppError(t, err, models.KindValidation)
	assert.Equal(t, validation.FailedMessage, appErr.Message)
	assert.Subset(t, fieldNames(appErr), []string{"email", "password", "name"})
	for _, fe := range appErr.ValidationErrors {
		if fe.Field == "password" {
			assert.Empty(t, fe.Value)
		}
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, validation.SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Ann"})
	require.NoError(t, err)

	_, _, wrongPassword := svc.Login(ctx, validation.LoginInput{Email: "a@b.com", Password: "Wrong1234"})
	_, _, unknownEmail := svc.Login(ctx, validation.LoginInput{Email: "x@b.com", Password: "Secret123"})

	for _, err := range []error{wrongPassword, unknownEmail} {
		appErr := requireAppError(t, err, models.KindUnauthenticated)
		assert.Equal(t, "Invalid email or password", appErr.Message)
		assert.Equal(t, models.CodeInvalidCredentials, appErr.Code)
	}

	_, _, err = svc.Login(ctx, validation.LoginInput{Email: "bad", Password: "x"})
	requireAppError(t, err, models.KindValidation)
}

func TestAuthService_LoginUnknownEmailStillComparesHash(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, validation.SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Ann"})
	require.NoError(t, err)

	var hashes [][]byte
	svc.compareHash = func(hash, password []byte) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, _, err = svc.Login(ctx, validation.LoginInput{Email: "nobody@b.com", Password: "Secret123"})
	requireAppError(t, err, models.KindUnauthenticated)
	_, _, err = svc.Login(ctx, validation.LoginInput{Email: "a@b.com", Password: "Wrong1234"})
	requireAppError(t, err, models.KindUnauthenticated)

	require.Len(t, hashes, 2, "both failures cost one comparison")
	cost, err := bcrypt.Cost(hashes[0])
	require.NoError(t, err)
	assert.Equal(t, BcryptCost, cost)
}

func TestAuthService_VerifyFailsClosed(t *testing.T) {
	svc, _ := newAuthService(t)
	user := &models.User{ID: 9, Email: "a@b.com"}

	valid, err := svc.GenerateToken(user)
	require.NoError(t, err)

	other := NewAuthService(nil, TokenConfig{Secret: "another-secret-entirely-different", Issuer: testTokens.Issuer, Audience: testTokens.Audience})
	wrongSecret, err := other.GenerateToken(user)
	require.NoError(t, err)

	foreign := NewAuthService(nil, TokenConfig{Secret: testTokens.Secret, Issuer: "someone-else", Audience: testTokens.Audience})
	wrongIssuer, err := foreign.GenerateToken(user)
	require.NoError(t, err)

	stale := NewAuthService(nil, testTokens)
	stale.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := stale.GenerateToken(user)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "9", "userId": 9, "iss": testTokens.Issuer, "aud": testTokens.Audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong secret", wrongSecret},
		{"wrong issuer", wrongIssuer},
		{"expired", expired},
		{"alg none", none},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := svc.Verify(tt.token)
			assert.Zero(t, id)
			appErr := requireAppError(t, err, models.KindUnauthenticated)
			assert.Equal(t, 401, appErr.StatusCode())
		})
	}

	id, err := svc.Verify(valid)
	require.NoError(t, err)
	assert.Equal(t, uint(9), id)
}

func TestAuthService_Status(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	user, err := svc.Signup(ctx, validation.SignupInput{Email: "a@b.com", Password: "Secret123", Name: "Ann"})
	require.NoError(t, err)

	status, err := svc.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "I am new!", status)

	require.NoError(t, svc.UpdateStatus(ctx, user.ID, validation.StatusInput{Status: "  <b>busy</b>  "}))
	status, err = svc.GetStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;busy&lt;/b&gt;", status)

	err = svc.UpdateStatus(ctx, user.ID, validation.StatusInput{Status: "   "})
	requireAppError(t, err, models.KindValidation)

	_, err = svc.GetStatus(ctx, 9999)
	appErr := requireAppError(t, err, models.KindNotFound)
	assert.Equal(t, "User not found.", appErr.Message)
}
