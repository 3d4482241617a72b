// internal/posts/repository.go
package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

const postColumns = `
	id, user_id, pet_id, description, status, latitude, longitude, likes, created_at, updated_at`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, q database.Querier, post *Post) error {
	query := `
		INSERT INTO posts (user_id, pet_id, description, status, latitude, longitude, likes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
		RETURNING id`

	return q.QueryRowxContext(ctx, q.Rebind(query),
		post.UserID, post.PetID, post.Description, post.Status,
		post.Latitude, post.Longitude, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)
}

func (r *Repository) Get(ctx context.Context, id int64) (*Post, error) {
	var post Post
	err := r.db.GetContext(ctx, &post, r.db.Rebind(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %w", utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns one page of posts, newest first, and the total matching count.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Post, int, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM posts`+clause), args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + postColumns + ` FROM posts` + clause + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	var list []Post
	err := r.db.SelectContext(ctx, &list, r.db.Rebind(query), append(args, f.Limit, f.Offset)...)
	return list, total, err
}

func (r *Repository) Update(ctx context.Context, q database.Querier, post *Post) error {
	query := `
		UPDATE posts SET description = ?, status = ?, latitude = ?, longitude = ?, updated_at = ?
		WHERE id = ?`
	_, err := q.ExecContext(ctx, q.Rebind(query),
		post.Description, post.Status, post.Latitude, post.Longitude, post.UpdatedAt, post.ID)
	return err
}

func (r *Repository) Delete(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	return err
}
