// internal/auth/service.go
// Service layer contains the business logic for accounts and tokens.

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

var (
	ErrInvalidCredentials = fmt.Errorf("invalid username or password: %w", utils.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("invalid or expired token: %w", utils.ErrUnauthorized)
	ErrTokenRevoked       = fmt.Errorf("token has been revoked: %w", utils.ErrUnauthorized)
	ErrAccountDeleted     = fmt.Errorf("account no longer exists: %w", utils.ErrUnauthorized)
	ErrTooManyAttempts    = fmt.Errorf("too many failed login attempts, try again later: %w", utils.ErrRateLimited)
	ErrUsernameTaken      = utils.NewValidationError("username", "a user with that username already exists")
)

// Service interface
type Service interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)

	// Token management
	ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error)
	Logout(ctx context.Context, claims *utils.JWTClaims) error
	LogoutAll(ctx context.Context, userID int64) error

	GetUserByID(ctx context.Context, userID int64) (*User, error)
}

// Config holds service configuration
type Config struct {
	JWTSecret           string
	Issuer              string
	AccessTokenExpiry   time.Duration
	BCryptCost          int
	LoginAttemptsMax    int
	LoginAttemptsWindow time.Duration
}

type service struct {
	repo   Repository
	tokens *TokenStore
	config *Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(repo Repository, tokens *TokenStore, config *Config, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		tokens: tokens,
		config: config,
		logger: logger.With(slog.String("component", "auth")),
		now:    time.Now,
	}
}

// Register creates an account and signs the new user in
func (s *service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if strings.ContainsAny(req.Username, " \t\r\n") {
		return nil, utils.NewValidationError("username", "must not contain whitespace")
	}

	taken, err := s.repo.IsUsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BCryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &User{
		Username:     req.Username,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))
	return s.issueToken(user)
}

// Login verifies credentials. Failed attempts are counted per username and
// further attempts are refused once the limit is reached.
func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	attempts, err := s.tokens.FailedAttempts(ctx, req.Username)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read login attempts", slog.Any("error", err))
	}
	if s.config.LoginAttemptsMax > 0 && attempts >= s.config.LoginAttemptsMax {
		return nil, ErrTooManyAttempts
	}

	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, utils.ErrNotFound) {
		s.recordFailedAttempt(ctx, req.Username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordFailedAttempt(ctx, req.Username)
		return nil, ErrInvalidCredentials
	}

	if err := s.tokens.ClearFailedAttempts(ctx, req.Username); err != nil {
		s.logger.WarnContext(ctx, "failed to clear login attempts", slog.Any("error", err))
	}
	return s.issueToken(user)
}

func (s *service) recordFailedAttempt(ctx context.Context, username string) {
	if err := s.tokens.RecordFailedAttempt(ctx, username, s.config.LoginAttemptsWindow); err != nil {
		s.logger.WarnContext(ctx, "failed to record login attempt", slog.Any("error", err))
	}
}

// ValidateToken checks the signature, expiry and revocation state of token,
// then that its user still exists. The last check holds when revocation is
// disabled.
func (s *service) ValidateToken(ctx context.Context, token string) (*utils.JWTClaims, error) {
	claims, err := utils.ValidateJWT(token, s.config.JWTSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	revoked, err := s.tokens.IsRevoked(ctx, userID, claims.ID, claims.IssuedAt.Time)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, ErrAccountDeleted
		}
		return nil, fmt.Errorf("failed to load token user: %w", err)
	}
	return claims, nil
}

// Logout revokes the presented token for the rest of its lifetime
func (s *service) Logout(ctx context.Context, claims *utils.JWTClaims) error {
	ttl := s.config.AccessTokenExpiry
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if err := s.tokens.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// LogoutAll revokes every token issued to userID up to now
func (s *service) LogoutAll(ctx context.Context, userID int64) error {
	if err := s.tokens.RevokeAllBefore(ctx, userID, s.now(), s.config.AccessTokenExpiry); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	s.logger.InfoContext(ctx, "all tokens revoked", slog.Int64("user_id", userID))
	return nil
}

func (s *service) GetUserByID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

func (s *service) issueToken(user *User) (*AuthResponse, error) {
	now := s.now()
	claims := utils.NewJWTClaims(user.ID, user.Username, uuid.NewString(), s.config.Issuer, now, s.config.AccessTokenExpiry)

	token, err := utils.GenerateJWT(claims, s.config.JWTSecret)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}
