// internal/interactions/service.go
package interactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

type Service struct {
	db     *sqlx.DB
	repo   *Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *sqlx.DB, repo *Repository, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		logger: logger.With(slog.String("component", "interactions")),
		now:    time.Now,
	}
}

// Like is idempotent: liking twice leaves a single like.
func (s *Service) Like(ctx context.Context, userID int64, t Target) (*LikeState, error) {
	if err := s.repo.Exists(ctx, t); err != nil {
		return nil, err
	}

	state := &LikeState{Liked: true}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		added, err := s.repo.Like(ctx, tx, userID, t, s.now().UTC())
		if err != nil {
			return err
		}
		if added && t.Kind == KindPost {
			if err := s.repo.AdjustPostLikes(ctx, tx, t.ID, 1); err != nil {
				return err
			}
		}
		state.Likes, err = s.repo.Likes(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to like %s: %w", t, err)
	}
	return state, nil
}

// Unlike removes the caller's like. Removing a missing like is not an error.
func (s *Service) Unlike(ctx context.Context, userID int64, t Target) (*LikeState, error) {
	if err := s.repo.Exists(ctx, t); err != nil {
		return nil, err
	}

	state := &LikeState{}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		removed, err := s.repo.Unlike(ctx, tx, userID, t)
		if err != nil {
			return err
		}
		if removed && t.Kind == KindPost {
			if err := s.repo.AdjustPostLikes(ctx, tx, t.ID, -1); err != nil {
				return err
			}
		}
		state.Likes, err = s.repo.Likes(ctx, tx, t)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unlike %s: %w", t, err)
	}
	return state, nil
}

// Likes reports the like count of t and whether userID liked it.
func (s *Service) Likes(ctx context.Context, userID int64, t Target) (*LikeState, error) {
	if err := s.repo.Exists(ctx, t); err != nil {
		return nil, err
	}
	likes, err := s.repo.Likes(ctx, s.db, t)
	if err != nil {
		return nil, err
	}
	liked := false
	if userID > 0 {
		if liked, err = s.repo.LikedBy(ctx, userID, t); err != nil {
			return nil, err
		}
	}
	return &LikeState{Liked: liked, Likes: likes}, nil
}

// AddComment stores a comment. A reply must answer a top-level comment on
// the same pet or post.
func (s *Service) AddComment(ctx context.Context, userID int64, t Target, req *CommentRequest) (*Comment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.repo.Exists(ctx, t); err != nil {
		return nil, err
	}

	if req.ReplyTo != nil {
		parent, err := s.repo.GetComment(ctx, *req.ReplyTo)
		if err != nil {
			if errors.Is(err, utils.ErrNotFound) {
				return nil, utils.NewValidationError("reply_to", "comment does not exist")
			}
			return nil, err
		}
		if !parent.on(t) {
			return nil, utils.NewValidationError("reply_to", fmt.Sprintf("comment belongs to another %s", t))
		}
		if parent.ReplyTo != nil {
			return nil, utils.NewValidationError("reply_to", "replies cannot be answered")
		}
	}

	comment := &Comment{
		UserID:    userID,
		ReplyTo:   req.ReplyTo,
		Text:      req.Text,
		CreatedAt: s.now().UTC(),
	}
	id := t.ID
	if t.Kind == KindPost {
		comment.PostID = &id
	} else {
		comment.PetID = &id
	}

	if err := s.repo.InsertComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	s.logger.InfoContext(ctx, "comment added",
		slog.Int64("comment_id", comment.ID), slog.String("target", t.String()), slog.Int64("target_id", t.ID))
	return comment, nil
}

// Comments returns the top-level comments of t with their replies nested.
func (s *Service) Comments(ctx context.Context, t Target) ([]Comment, error) {
	if err := s.repo.Exists(ctx, t); err != nil {
		return nil, err
	}
	flat, err := s.repo.ListComments(ctx, t)
	if err != nil {
		return nil, err
	}
	return buildThreads(flat), nil
}

func buildThreads(flat []Comment) []Comment {
	replies := make(map[int64][]Comment)
	for _, c := range flat {
		if c.ReplyTo != nil {
			replies[*c.ReplyTo] = append(replies[*c.ReplyTo], c)
		}
	}

	threads := []Comment{}
	for _, c := range flat {
		if c.ReplyTo == nil {
			c.Replies = replies[c.ID]
			threads = append(threads, c)
		}
	}
	return threads
}

// DeleteComment removes a comment owned by userID together with its replies.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID int64) error {
	comment, err := s.repo.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return utils.ErrForbidden
	}
	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}
