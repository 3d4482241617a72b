// Package authtest wires the real auth middleware for handler tests and
// mints tokens for arbitrary users.
package authtest

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

const secret = "authtest-secret"

type Kit struct {
	Middleware *auth.Middleware
	Service    auth.Service
}

// New returns middleware backed by db with token revocation disabled.
func New(db *sqlx.DB) *Kit {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.NewService(auth.NewRepository(db), auth.NewTokenStore(nil), &auth.Config{
		JWTSecret:         secret,
		Issuer:            "authtest",
		AccessTokenExpiry: time.Hour,
		BCryptCost:        bcrypt.MinCost,
	}, logger)
	return &Kit{Middleware: auth.NewMiddleware(svc, logger), Service: svc}
}

// Token signs an access token for userID.
func (k *Kit) Token(t testing.TB, userID int64) string {
	t.Helper()
	claims := utils.NewJWTClaims(userID, "tester", uuid.NewString(), "authtest", time.Now(), time.Hour)
	token, err := utils.GenerateJWT(claims, secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}
