// internal/users/repository.go

package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

const addressColumns = `id, user_id, street, city, state, zip, country, created_at`

// Repository defines the account and address queries
type Repository interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, p *Profile) error
	ReleaseLikes(ctx context.Context, q database.Querier, userID int64) error
	DeleteUser(ctx context.Context, q database.Querier, userID int64) error

	ListAddresses(ctx context.Context, userID int64) ([]Address, error)
	GetAddress(ctx context.Context, userID, addressID int64) (*Address, error)
	CreateAddress(ctx context.Context, a *Address) error
	UpdateAddress(ctx context.Context, a *Address) error
	DeleteAddress(ctx context.Context, userID, addressID int64) error
}

type sqlRepository struct {
	db *sqlx.DB
}

// NewRepository returns a Repository backed by db
func NewRepository(db *sqlx.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	query := `
		SELECT
			u.id, u.username, u.email, u.first_name, u.last_name, u.created_at, u.updated_at,
			(SELECT COUNT(*) FROM pets p WHERE p.user_id = u.id) AS pets,
			(SELECT COUNT(*) FROM posts po WHERE po.user_id = u.id) AS posts
		FROM users u
		WHERE u.id = ?`

	var p Profile
	err := r.db.GetContext(ctx, &p, r.db.Rebind(query), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %w", utils.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (r *sqlRepository) UpdateProfile(ctx context.Context, p *Profile) error {
	query := `UPDATE users SET email = ?, first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), p.Email, p.FirstName, p.LastName, p.UpdatedAt, p.ID)
	return err
}

// ReleaseLikes takes the user's likes off the stored post counters. It must
// run before DeleteUser, whose cascade drops the like rows.
func (r *sqlRepository) ReleaseLikes(ctx context.Context, q database.Querier, userID int64) error {
	query := `
		UPDATE posts SET likes = likes - (
			SELECT COUNT(*) FROM likes l WHERE l.post_id = posts.id AND l.user_id = ?
		)
		WHERE id IN (SELECT post_id FROM likes WHERE user_id = ? AND post_id IS NOT NULL)`
	if _, err := q.ExecContext(ctx, q.Rebind(query), userID, userID); err != nil {
		return fmt.Errorf("failed to release likes: %w", err)
	}
	return nil
}

// DeleteUser removes the account. Foreign keys take every owned row with it.
func (r *sqlRepository) DeleteUser(ctx context.Context, q database.Querier, userID int64) error {
	_, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM users WHERE id = ?`), userID)
	return err
}

func (r *sqlRepository) ListAddresses(ctx context.Context, userID int64) ([]Address, error) {
	var out []Address
	query := `SELECT ` + addressColumns + ` FROM user_addresses WHERE user_id = ? ORDER BY id`
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), userID); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Address{}
	}
	return out, nil
}

func (r *sqlRepository) GetAddress(ctx context.Context, userID, addressID int64) (*Address, error) {
	var a Address
	query := `SELECT ` + addressColumns + ` FROM user_addresses WHERE id = ? AND user_id = ?`
	err := r.db.GetContext(ctx, &a, r.db.Rebind(query), addressID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("address %w", utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *sqlRepository) CreateAddress(ctx context.Context, a *Address) error {
	query := `
		INSERT INTO user_addresses (user_id, street, city, state, zip, country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	return r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		a.UserID, a.Street, a.City, a.State, a.Zip, a.Country, a.CreatedAt,
	).Scan(&a.ID)
}

func (r *sqlRepository) UpdateAddress(ctx context.Context, a *Address) error {
	query := `UPDATE user_addresses SET street = ?, city = ?, state = ?, zip = ?, country = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), a.Street, a.City, a.State, a.Zip, a.Country, a.ID)
	return err
}

func (r *sqlRepository) DeleteAddress(ctx context.Context, userID, addressID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM user_addresses WHERE id = ? AND user_id = ?`),
		addressID, userID)
	return err
}
