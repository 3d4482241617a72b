// internal/interactions/repository.go
package interactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Exists returns a not-found error when the target row is missing.
func (r *Repository) Exists(ctx context.Context, t Target) error {
	var id int64
	err := r.db.GetContext(ctx, &id, r.db.Rebind(`SELECT id FROM `+t.table()+` WHERE id = ?`), t.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", t, utils.ErrNotFound)
	}
	return err
}

// Like records a like and reports whether a new row was written.
func (r *Repository) Like(ctx context.Context, q database.Querier, userID int64, t Target, now time.Time) (bool, error) {
	query := `INSERT INTO likes (user_id, ` + t.column() + `, created_at) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING`
	res, err := q.ExecContext(ctx, q.Rebind(query), userID, t.ID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Unlike removes a like and reports whether one existed.
func (r *Repository) Unlike(ctx context.Context, q database.Querier, userID int64, t Target) (bool, error) {
	query := `DELETE FROM likes WHERE user_id = ? AND ` + t.column() + ` = ?`
	res, err := q.ExecContext(ctx, q.Rebind(query), userID, t.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AdjustPostLikes moves the stored counter of a post by delta.
func (r *Repository) AdjustPostLikes(ctx context.Context, q database.Querier, postID int64, delta int) error {
	_, err := q.ExecContext(ctx, q.Rebind(`UPDATE posts SET likes = likes + ? WHERE id = ?`), delta, postID)
	return err
}

// Likes returns the like count of t. Posts keep a counter, pets are counted.
func (r *Repository) Likes(ctx context.Context, q database.Querier, t Target) (int, error) {
	query := `SELECT COUNT(*) FROM likes WHERE pet_id = ?`
	if t.Kind == KindPost {
		query = `SELECT likes FROM posts WHERE id = ?`
	}
	var n int
	err := q.GetContext(ctx, &n, q.Rebind(query), t.ID)
	return n, err
}

func (r *Repository) LikedBy(ctx context.Context, userID int64, t Target) (bool, error) {
	var n int
	query := `SELECT COUNT(*) FROM likes WHERE user_id = ? AND ` + t.column() + ` = ?`
	err := r.db.GetContext(ctx, &n, r.db.Rebind(query), userID, t.ID)
	return n > 0, err
}

func (r *Repository) InsertComment(ctx context.Context, c *Comment) error {
	query := `
		INSERT INTO comments (user_id, pet_id, post_id, reply_to, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`
	return r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		c.UserID, c.PetID, c.PostID, c.ReplyTo, c.Text, c.CreatedAt,
	).Scan(&c.ID)
}

func (r *Repository) GetComment(ctx context.Context, id int64) (*Comment, error) {
	var c Comment
	query := `SELECT id, user_id, pet_id, post_id, reply_to, text, created_at FROM comments WHERE id = ?`
	err := r.db.GetContext(ctx, &c, r.db.Rebind(query), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %w", utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns every comment on t, oldest first.
func (r *Repository) ListComments(ctx context.Context, t Target) ([]Comment, error) {
	query := `SELECT id, user_id, pet_id, post_id, reply_to, text, created_at FROM comments
		WHERE ` + t.column() + ` = ? ORDER BY created_at, id`
	var out []Comment
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), t.ID)
	return out, err
}

func (r *Repository) DeleteComment(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM comments WHERE id = ?`), id)
	return err
}
