// internal/auth/tokens.go
// Token revocation and login throttling kept in Redis.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenStore tracks revoked tokens and failed logins. A nil client disables
// both, which is only acceptable in development.
type TokenStore struct {
	redis *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{redis: client}
}

func (s *TokenStore) Enabled() bool {
	return s != nil && s.redis != nil
}

// Revoke blacklists one token id until the token would have expired anyway.
func (s *TokenStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if !s.Enabled() || ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedKey(tokenID), 1, ttl).Err()
}

// RevokeAllBefore invalidates every token issued to userID at or before t.
func (s *TokenStore) RevokeAllBefore(ctx context.Context, userID int64, t time.Time, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	return s.redis.Set(ctx, validAfterKey(userID), t.Unix(), ttl).Err()
}

// IsRevoked reports whether a token with id tokenID, issued at issuedAt, has
// been revoked individually or by a logout from all devices.
func (s *TokenStore) IsRevoked(ctx context.Context, userID int64, tokenID string, issuedAt time.Time) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}

	n, err := s.redis.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	raw, err := s.redis.Get(ctx, validAfterKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	validAfter, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, nil
	}
	return issuedAt.Unix() <= validAfter, nil
}

// FailedAttempts returns the failed logins recorded for username.
func (s *TokenStore) FailedAttempts(ctx context.Context, username string) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	n, err := s.redis.Get(ctx, failedLoginKey(username)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RecordFailedAttempt counts a failed login; the window starts at the first failure.
func (s *TokenStore) RecordFailedAttempt(ctx context.Context, username string, window time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	key := failedLoginKey(username)
	n, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return s.redis.Expire(ctx, key, window).Err()
	}
	return nil
}

func (s *TokenStore) ClearFailedAttempts(ctx context.Context, username string) error {
	if !s.Enabled() {
		return nil
	}
	return s.redis.Del(ctx, failedLoginKey(username)).Err()
}

func revokedKey(tokenID string) string { return "revoked:" + tokenID }
func validAfterKey(userID int64) string { return fmt.Sprintf("tokens_valid_after:%d", userID) }
func failedLoginKey(username string) string { return "failed_login:" + username }
