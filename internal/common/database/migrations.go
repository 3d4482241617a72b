// internal/common/database/migrations.go
// Schema creation for Postgres and SQLite
// Statements are written once; the few type names that differ between the
// two engines are substituted per dialect.

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		username VARCHAR(150) NOT NULL UNIQUE,
		email VARCHAR(254) NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		first_name VARCHAR(150) NOT NULL DEFAULT '',
		last_name VARCHAR(150) NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_addresses (
		id {{pk}},
		user_id {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		street VARCHAR(255) NOT NULL DEFAULT '',
		city VARCHAR(100) NOT NULL DEFAULT '',
		state VARCHAR(100) NOT NULL DEFAULT '',
		zip VARCHAR(20) NOT NULL DEFAULT '',
		country VARCHAR(100) NOT NULL DEFAULT '',
		created_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS breeds (
		id {{pk}},
		name VARCHAR(50) NOT NULL,
		animal VARCHAR(16) NOT NULL CHECK (animal IN ('unknown', 'dog', 'cat')),
		UNIQUE (name, animal)
	)`,
	`CREATE TABLE IF NOT EXISTS pets (
		id {{pk}},
		user_id {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(50) NOT NULL DEFAULT '',
		animal VARCHAR(16) NOT NULL CHECK (animal IN ('unknown', 'dog', 'cat')),
		sex VARCHAR(16) NOT NULL DEFAULT 'unknown',
		age INTEGER CHECK (age >= 0),
		weight INTEGER CHECK (weight >= 0),
		eye_color VARCHAR(16) NOT NULL DEFAULT 'unknown',
		exterior_color VARCHAR(16) NOT NULL DEFAULT 'unknown',
		microchip VARCHAR(64),
		information VARCHAR(5000) NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL DEFAULT 'unknown',
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pet_breeds (
		pet_id {{fk}} NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
		breed_id {{fk}} NOT NULL REFERENCES breeds(id) ON DELETE CASCADE,
		PRIMARY KEY (pet_id, breed_id)
	)`,
	`CREATE TABLE IF NOT EXISTS pet_locations (
		pet_id {{fk}} PRIMARY KEY REFERENCES pets(id) ON DELETE CASCADE,
		latitude NUMERIC(8,6) NOT NULL,
		longitude NUMERIC(9,6) NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id {{pk}},
		user_id {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		pet_id {{fk}} NOT NULL REFERENCES pets(id) ON DELETE CASCADE,
		description TEXT NOT NULL DEFAULT '',
		status VARCHAR(16) NOT NULL CHECK (status IN ('lost', 'found', 'resolved')),
		latitude NUMERIC(8,6) NOT NULL,
		longitude NUMERIC(9,6) NOT NULL,
		likes INTEGER NOT NULL DEFAULT 0 CHECK (likes >= 0),
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS photos (
		id {{pk}},
		pet_id {{fk}} REFERENCES pets(id) ON DELETE CASCADE,
		post_id {{fk}} REFERENCES posts(id) ON DELETE CASCADE,
		object_key VARCHAR(255) NOT NULL UNIQUE,
		position INTEGER NOT NULL CHECK (position >= 0),
		content_type VARCHAR(100) NOT NULL,
		created_at {{ts}} NOT NULL,
		CHECK ((pet_id IS NULL) <> (post_id IS NULL)),
		UNIQUE (pet_id, position),
		UNIQUE (post_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id {{pk}},
		user_id {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		pet_id {{fk}} REFERENCES pets(id) ON DELETE CASCADE,
		post_id {{fk}} REFERENCES posts(id) ON DELETE CASCADE,
		reply_to {{fk}} REFERENCES comments(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at {{ts}} NOT NULL,
		CHECK ((pet_id IS NULL) <> (post_id IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS likes (
		id {{pk}},
		user_id {{fk}} NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		pet_id {{fk}} REFERENCES pets(id) ON DELETE CASCADE,
		post_id {{fk}} REFERENCES posts(id) ON DELETE CASCADE,
		created_at {{ts}} NOT NULL,
		CHECK ((pet_id IS NULL) <> (post_id IS NULL)),
		UNIQUE (user_id, pet_id),
		UNIQUE (user_id, post_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pets_user_id ON pets(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_pet_id ON comments(pet_id)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_addresses_user_id ON user_addresses(user_id)`,
}

// Breeds seeded on every start; existing rows are left alone.
var seedBreeds = []struct {
	Name   string
	Animal string
}{
	{"Mixed", "dog"},
	{"Labrador Retriever", "dog"},
	{"German Shepherd", "dog"},
	{"Golden Retriever", "dog"},
	{"French Bulldog", "dog"},
	{"Beagle", "dog"},
	{"Poodle", "dog"},
	{"Dachshund", "dog"},
	{"Siberian Husky", "dog"},
	{"Mixed", "cat"},
	{"Domestic Shorthair", "cat"},
	{"Maine Coon", "cat"},
	{"Persian", "cat"},
	{"Siamese", "cat"},
	{"Ragdoll", "cat"},
	{"Bengal", "cat"},
	{"British Shorthair", "cat"},
	{"Sphynx", "cat"},
}

func dialectReplacer(driver string) *strings.Replacer {
	if driver == "sqlite" {
		return strings.NewReplacer(
			"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{fk}}", "INTEGER",
			"{{ts}}", "TIMESTAMP",
		)
	}
	return strings.NewReplacer(
		"{{pk}}", "BIGSERIAL PRIMARY KEY",
		"{{fk}}", "BIGINT",
		"{{ts}}", "TIMESTAMPTZ",
	)
}

// Migrate creates every table and seeds reference data. It is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	r := dialectReplacer(db.DriverName())
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}

	seed := db.Rebind(`INSERT INTO breeds (name, animal) VALUES (?, ?) ON CONFLICT (name, animal) DO NOTHING`)
	for _, b := range seedBreeds {
		if _, err := db.ExecContext(ctx, seed, b.Name, b.Animal); err != nil {
			return fmt.Errorf("failed to seed breed %s/%s: %w", b.Animal, b.Name, err)
		}
	}
	return nil
}
