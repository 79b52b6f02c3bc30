// Package service holds the business rules for accounts and posts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/observability"
	"feedhub/internal/repository"
	"feedhub/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the work factor for stored password hashes.
	BcryptCost = 12
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = time.Hour
)

// TokenConfig holds the signing parameters for session tokens.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims is the payload of a session token.
type Claims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo    repository.UserRepository
	tokens      TokenConfig
	now         func() time.Time
	compareHash func(hash, password []byte) error
}

var (
	unknownUserHashOnce sync.Once
	unknownUserHash     []byte
)

// decoyHash is compared against when the email is unknown so both login
// failures cost one bcrypt comparison.
func decoyHash() []byte {
	unknownUserHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), BcryptCost)
		if err != nil {
			panic(err)
		}
		unknownUserHash = h
	})
	return unknownUserHash
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenConfig) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:      tokens,
		now:         time.Now,
		compareHash: bcrypt.CompareHashAndPassword,
	}
}

func invalidCredentials() *models.AppError {
	return models.NewUnauthenticatedError("Invalid email or password").WithCode(models.CodeInvalidCredentials)
}

func invalidToken() *models.AppError {
	return models.NewUnauthenticatedError("Invalid or expired token")
}

// Signup validates in, rejects a taken email and stores the account with a
// bcrypt-hashed password.
func (s *AuthService) Signup(ctx context.Context, in validation.SignupInput) (*models.User, error) {
	ctx, span := observability.StartSpan(ctx, "auth.signup")
	user, err := s.signup(ctx, in)
	observability.EndSpan(span, err)

	outcome := "success"
	if err != nil {
		outcome = "rejected"
	}
	observability.AuthAttempts.WithLabelValues("signup", outcome).Inc()
	return user, err
}

func (s *AuthService) signup(ctx context.Context, in validation.SignupInput) (*models.User, error) {
	in.Normalize()
	verr := validation.Struct(in)

	// Uniqueness is only meaningful for a well-formed address.
	if validation.IsEmail(in.Email) {
		existing, err := s.userRepo.GetByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			verr = validation.Merge(verr, models.FieldError{
				Field:   "email",
				Message: "Email already exists",
				Value:   in.Email,
			})
			var appErr *models.AppError
			if errors.As(verr, &appErr) {
				appErr.WithCode(models.CodeEmailTaken)
			}
		}
	}
	if verr != nil {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Email:    in.Email,
		Password: string(hash),
		Name:     in.Name,
		Status:   models.DefaultStatus,
	}
	// The repository maps a concurrent duplicate insert onto the same 422.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user signed up", slog.Uint64("user_id", uint64(user.ID)))
	return user, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in validation.LoginInput) (string, *models.User, error) {
	ctx, span := observability.StartSpan(ctx, "auth.login")
	token, user, err := s.login(ctx, in)
	observability.EndSpan(span, err)

	outcome := "success"
	if err != nil {
		outcome = "rejected"
	}
	observability.AuthAttempts.WithLabelValues("login", outcome).Inc()
	return token, user, err
}

func (s *AuthService) login(ctx context.Context, in validation.LoginInput) (string, *models.User, error) {
	in.Normalize()
	if err := validation.Struct(in); err != nil {
		return "", nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		_ = s.compareHash(decoyHash(), []byte(in.Password))
		return "", nil, invalidCredentials()
	}
	if err := s.compareHash([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", nil, invalidCredentials()
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// GenerateToken signs an HS256 token for user valid for TokenTTL.
func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    s.tokens.Issuer,
			Audience:  jwt.ClaimStrings{s.tokens.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.tokens.Secret))
	if err != nil {
		return "", models.NewInternalError(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

// Verify parses token and returns its user id. Anything short of a valid,
// unexpired HS256 token for this issuer and audience is a 401.
func (s *AuthService) Verify(token string) (uint, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(s.tokens.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.tokens.Issuer),
		jwt.WithAudience(s.tokens.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return 0, invalidToken()
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 || uint(id) != claims.UserID {
		return 0, invalidToken()
	}
	return uint(id), nil
}

// GetStatus returns the status line of userID.
func (s *AuthService) GetStatus(ctx context.Context, userID uint) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Status, nil
}

// UpdateStatus validates and stores a new, HTML-escaped status line.
func (s *AuthService) UpdateStatus(ctx context.Context, userID uint, in validation.StatusInput) error {
	in.Normalize()
	if err := validation.Struct(in); err != nil {
		return err
	}
	return s.userRepo.UpdateStatus(ctx, userID, validation.Escape(in.Status))
}
