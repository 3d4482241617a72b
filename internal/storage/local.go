package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var errURLMismatch = errors.New("storage: url token does not match object")

// LocalStore keeps objects as files in one directory. It is meant for local
// development. The URLs it issues carry a signed expiring token that Handler
// checks before serving the file.
type LocalStore struct {
	dir     string
	baseURL string
	key     []byte
	logger  *slog.Logger
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates dir if needed. signingKey signs the issued URLs.
func NewLocalStore(dir, baseURL, signingKey string, logger *slog.Logger) (*LocalStore, error) {
	if signingKey == "" {
		return nil, errors.New("storage.NewLocalStore: signing key is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewLocalStore: failed to create upload directory: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     []byte(signingKey),
		logger:  logger.With(slog.String("component", "storage.local")),
	}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

func (s *LocalStore) Save(ctx context.Context, name string, content []byte) (string, error) {
	const op = "storage.LocalStore.Save"

	p, err := s.path(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.WriteFile(p, content, 0o644); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return name, nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	const op = "storage.LocalStore.Exists"

	p, err := s.path(name)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// Delete ignores a missing file, like S3 does for a missing key.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	const op = "storage.LocalStore.Delete"

	p, err := s.path(name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *LocalStore) URL(ctx context.Context, name string, ttl time.Duration) *string {
	if _, err := s.path(name); err != nil || ttl <= 0 {
		s.logger.WarnContext(ctx, "cannot issue url", slog.String("key", name), slog.Duration("ttl", ttl))
		return nil
	}
	claims := jwt.RegisteredClaims{
		Subject:   name,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		s.logger.WarnContext(ctx, "cannot sign url", slog.String("key", name), slog.Any("error", err))
		return nil
	}
	u := s.baseURL + "/uploads/" + url.PathEscape(name) + "?token=" + url.QueryEscape(token)
	return &u
}

// Handler serves the files behind URLs issued by URL. Mount it at /uploads/.
// A missing or forged token is 403 and an expired one is 410.
func (s *LocalStore) Handler() http.Handler {
	return http.StripPrefix("/uploads/", http.HandlerFunc(s.serve))
}

func (s *LocalStore) serve(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path
	p, err := s.path(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := s.verify(name, r.URL.Query().Get("token")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, jwt.ErrTokenExpired) {
			status = http.StatusGone
		}
		s.logger.DebugContext(r.Context(), "upload url rejected", slog.String("key", name), slog.Any("error", err))
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.ServeFile(w, r, p)
}

func (s *LocalStore) verify(name, token string) error {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return err
	}
	if claims.Subject != name || claims.ExpiresAt == nil {
		return errURLMismatch
	}
	return nil
}

func (s *LocalStore) AvailableName(ctx context.Context, name string) (string, error) {
	return AvailableName(ctx, s, name)
}
