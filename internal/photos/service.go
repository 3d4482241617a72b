// internal/photos/service.go
package photos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/storage"
)

type Service struct {
	repo   *Repository
	store  storage.ObjectStore
	logger *slog.Logger
	urlTTL time.Duration
	now    func() time.Time
}

func NewService(repo *Repository, store storage.ObjectStore, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger.With(slog.String("component", "photos")),
		urlTTL: storage.DefaultURLTTL,
		now:    time.Now,
	}
}

// SetURLTTL changes how long generated photo URLs stay valid.
func (s *Service) SetURLTTL(ttl time.Duration) {
	if ttl > 0 {
		s.urlTTL = ttl
	}
}

// NewBatch starts tracking the uploads of one composite write.
func (s *Service) NewBatch() *storage.Batch {
	return storage.NewBatch(s.store, s.logger)
}

// Attach uploads every image and inserts its row inside tx. The row is only
// written after its blob was saved. Uploads must already be normalized.
func (s *Service) Attach(ctx context.Context, tx database.Querier, batch *storage.Batch, parent Parent, uploads []Upload) ([]Photo, error) {
	out := make([]Photo, 0, len(uploads))
	for i, u := range uploads {
		key, err := batch.Put(ctx, u.Filename, u.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to store photo %d: %w", i, err)
		}

		photo := Photo{
			ObjectKey:   key,
			Order:       *u.Order,
			ContentType: storage.ContentType(key),
			CreatedAt:   s.now().UTC(),
		}
		if err := s.repo.Insert(ctx, tx, parent, &photo); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, utils.NewValidationError(fmt.Sprintf("photos[%d].order", i), "order is already taken")
			}
			return nil, fmt.Errorf("failed to insert photo %d: %w", i, err)
		}
		out = append(out, photo)
	}
	return out, nil
}

// Abort undoes the uploads of a failed write and returns cause.
func (s *Service) Abort(ctx context.Context, batch *storage.Batch, cause error) error {
	if len(batch.Keys()) == 0 {
		return cause
	}
	if err := batch.Rollback(ctx); err != nil {
		s.logger.ErrorContext(ctx, "composite write left orphaned objects",
			slog.Any("cause", cause), slog.Any("error", err))
	}
	return cause
}

// Add attaches more photos to an existing pet or post in its own transaction.
func (s *Service) Add(ctx context.Context, db *sqlx.DB, parent Parent, uploads []Upload) ([]Photo, error) {
	if len(uploads) == 0 {
		return nil, utils.NewValidationError("photos", "at least one photo is required")
	}

	batch := s.NewBatch()
	var added []Photo
	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		next, err := s.repo.NextOrder(ctx, tx, parent)
		if err != nil {
			return err
		}
		if err := Normalize(uploads, next); err != nil {
			return err
		}
		added, err = s.Attach(ctx, tx, batch, parent, uploads)
		return err
	})
	if err != nil {
		return nil, s.Abort(ctx, batch, err)
	}

	s.ResolveURLs(ctx, added)
	return added, nil
}

// Remove deletes one photo row and then its blob. A blob that cannot be
// deleted is logged and left behind.
func (s *Service) Remove(ctx context.Context, parent Parent, photoID int64) error {
	photo, err := s.repo.Get(ctx, parent, photoID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, photo.ID); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	s.Purge(ctx, []string{photo.ObjectKey})
	return nil
}

// Purge deletes blobs whose rows are already gone.
func (s *Service) Purge(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := storage.Purge(ctx, s.store, s.logger, keys); err != nil {
		s.logger.WarnContext(ctx, "some photo objects were not deleted",
			slog.Int("count", len(keys)), slog.Any("error", err))
	}
}

// ResolveURLs fills in a time-limited URL for each photo. A URL that cannot
// be issued stays nil.
func (s *Service) ResolveURLs(ctx context.Context, photos []Photo) {
	for i := range photos {
		photos[i].URL = s.store.URL(ctx, photos[i].ObjectKey, s.urlTTL)
	}
}

func (s *Service) ListFor(ctx context.Context, q database.Querier, parent Parent) ([]Photo, error) {
	list, err := s.repo.ListByParent(ctx, q, parent)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Photo{}
	}
	s.ResolveURLs(ctx, list)
	return list, nil
}

func (s *Service) ListForMany(ctx context.Context, kind Kind, ids []int64) (map[int64][]Photo, error) {
	byParent, err := s.repo.ListByParents(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	for id, list := range byParent {
		s.ResolveURLs(ctx, list)
		byParent[id] = list
	}
	return byParent, nil
}

func (s *Service) KeysForPet(ctx context.Context, q database.Querier, petID int64) ([]string, error) {
	return s.repo.KeysForPet(ctx, q, petID)
}

func (s *Service) KeysForPost(ctx context.Context, q database.Querier, postID int64) ([]string, error) {
	return s.repo.KeysForPost(ctx, q, postID)
}

func (s *Service) KeysForUser(ctx context.Context, q database.Querier, userID int64) ([]string, error) {
	return s.repo.KeysForUser(ctx, q, userID)
}
