// Package dbtest opens a migrated throwaway database for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
)

// New returns a migrated SQLite database living in t.TempDir().
func New(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "furlorn.db")
	db, err := database.NewSQLiteDB(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Count returns the number of rows in table matching where (may be empty).
func Count(t testing.TB, db *sqlx.DB, table, where string, args ...interface{}) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.Get(&n, db.Rebind(query), args...); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t testing.TB, db *sqlx.DB, username string) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := db.QueryRowx(db.Rebind(`
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		username, username+"@example.com", "x", now, now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

// CreatePet inserts a bare pet owned by userID.
func CreatePet(t testing.TB, db *sqlx.DB, userID int64, animal string) int64 {
	t.Helper()

	now := time.Now().UTC()
	var id int64
	err := db.QueryRowx(db.Rebind(`
		INSERT INTO pets (user_id, name, animal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`),
		userID, "test pet", animal, now, now,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create pet: %v", err)
	}
	return id
}
