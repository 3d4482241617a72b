// internal/photos/repository.go
package photos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

const photoColumns = `id, pet_id, post_id, object_key, position, content_type, created_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, q database.Querier, parent Parent, photo *Photo) error {
	query := fmt.Sprintf(`
		INSERT INTO photos (%s, object_key, position, content_type, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`, parent.column())

	err := q.QueryRowxContext(ctx, q.Rebind(query),
		parent.ID, photo.ObjectKey, photo.Order, photo.ContentType, photo.CreatedAt,
	).Scan(&photo.ID)
	if err != nil {
		return err
	}
	if parent.Kind == KindPost {
		photo.PostID = sql.NullInt64{Int64: parent.ID, Valid: true}
	} else {
		photo.PetID = sql.NullInt64{Int64: parent.ID, Valid: true}
	}
	return nil
}

func (r *Repository) ListByParent(ctx context.Context, q database.Querier, parent Parent) ([]Photo, error) {
	query := fmt.Sprintf(`SELECT %s FROM photos WHERE %s = ? ORDER BY position, id`, photoColumns, parent.column())

	var out []Photo
	if err := q.SelectContext(ctx, &out, q.Rebind(query), parent.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByParents loads the photos of many pets or posts at once, keyed by parent id.
func (r *Repository) ListByParents(ctx context.Context, kind Kind, ids []int64) (map[int64][]Photo, error) {
	out := make(map[int64][]Photo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(
		fmt.Sprintf(`SELECT %s FROM photos WHERE %s IN (?) ORDER BY position, id`, photoColumns, Parent{Kind: kind}.column()),
		ids,
	)
	if err != nil {
		return nil, err
	}

	var rows []Photo
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.parentID()] = append(out[p.parentID()], p)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, parent Parent, photoID int64) (*Photo, error) {
	query := fmt.Sprintf(`SELECT %s FROM photos WHERE id = ? AND %s = ?`, photoColumns, parent.column())

	var p Photo
	err := r.db.GetContext(ctx, &p, r.db.Rebind(query), photoID, parent.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("photo %w", utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) Delete(ctx context.Context, photoID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM photos WHERE id = ?`), photoID)
	return err
}

// NextOrder returns one past the highest order used by parent.
func (r *Repository) NextOrder(ctx context.Context, q database.Querier, parent Parent) (int, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(position) + 1, 0) FROM photos WHERE %s = ?`, parent.column())

	var next int
	if err := q.GetContext(ctx, &next, q.Rebind(query), parent.ID); err != nil {
		return 0, err
	}
	return next, nil
}

// KeysForPet lists the objects removed with a pet: its own photos and the
// photos of every post about it.
func (r *Repository) KeysForPet(ctx context.Context, q database.Querier, petID int64) ([]string, error) {
	query := `
		SELECT object_key FROM photos
		WHERE pet_id = ?
		   OR post_id IN (SELECT id FROM posts WHERE pet_id = ?)`

	var keys []string
	err := q.SelectContext(ctx, &keys, q.Rebind(query), petID, petID)
	return keys, err
}

func (r *Repository) KeysForPost(ctx context.Context, q database.Querier, postID int64) ([]string, error) {
	var keys []string
	err := q.SelectContext(ctx, &keys, q.Rebind(`SELECT object_key FROM photos WHERE post_id = ?`), postID)
	return keys, err
}

// KeysForUser lists the objects removed with a user account.
func (r *Repository) KeysForUser(ctx context.Context, q database.Querier, userID int64) ([]string, error) {
	query := `
		SELECT object_key FROM photos
		WHERE pet_id IN (SELECT id FROM pets WHERE user_id = ?)
		   OR post_id IN (
				SELECT id FROM posts
				WHERE user_id = ? OR pet_id IN (SELECT id FROM pets WHERE user_id = ?)
		   )`

	var keys []string
	err := q.SelectContext(ctx, &keys, q.Rebind(query), userID, userID, userID)
	return keys, err
}
