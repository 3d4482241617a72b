// internal/posts/service.go
package posts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/geo"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/pets"
	"github.com/furlorn/furlorn-backend/internal/photos"
)

// Publisher receives every post after it was committed.
type Publisher interface {
	PublishPost(ctx context.Context, post *Post)
}

type Service struct {
	db        *sqlx.DB
	repo      *Repository
	pets      *pets.Service
	photos    *photos.Service
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(db *sqlx.DB, repo *Repository, petService *pets.Service, photoService *photos.Service,
	publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		repo:      repo,
		pets:      petService,
		photos:    photoService,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "posts")),
		now:       time.Now,
	}
}

// Create stores a post, its photos and, when the payload carries one, a new
// pet as one unit. A new pet without a location is placed at the post's
// coordinates.
func (s *Service) Create(ctx context.Context, userID int64, in *CreatePostRequest) (*Post, error) {
	verr := &utils.ValidationError{}
	if err := utils.ValidateStruct(in); err != nil {
		v, ok := utils.AsValidationError(err)
		if !ok {
			return nil, err
		}
		verr.Merge("", v)
	}

	point, lerr := pets.MergeLocation(nil, &pets.LocationInput{Latitude: in.Latitude, Longitude: in.Longitude})
	verr.Merge("", lerr)

	switch {
	case in.Pet != nil && in.PetID != nil:
		verr.Add("pet", "provide either pet or pet_id, not both")
	case in.Pet == nil && in.PetID == nil:
		verr.Add("pet", "either pet or pet_id is required")
	}
	if err := photos.Normalize(in.Photos, 0); err != nil {
		v, _ := utils.AsValidationError(err)
		verr.Merge("", v)
	}
	if verr.HasErrors() {
		return nil, verr
	}

	post := &Post{
		UserID:      userID,
		Description: in.Description,
		Status:      in.Status,
		Latitude:    point.Latitude,
		Longitude:   point.Longitude,
	}

	var draft *pets.Draft
	if in.Pet != nil {
		d, err := s.pets.Prepare(ctx, in.Pet, point)
		if err != nil {
			if v, ok := utils.AsValidationError(err); ok {
				nested := &utils.ValidationError{}
				nested.Merge("pet", v)
				return nil, nested
			}
			return nil, err
		}
		draft = d
	} else {
		owner, err := s.pets.OwnerOf(ctx, *in.PetID)
		if err != nil {
			return nil, err
		}
		if owner != userID {
			return nil, fmt.Errorf("pet belongs to another user: %w", utils.ErrForbidden)
		}
		post.PetID = *in.PetID
	}

	now := s.now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	batch := s.photos.NewBatch()
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if draft != nil {
			petID, err := s.pets.Insert(ctx, tx, batch, userID, draft)
			if err != nil {
				return err
			}
			post.PetID = petID
		}
		if err := s.repo.Insert(ctx, tx, post); err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
		_, err := s.photos.Attach(ctx, tx, batch, photos.PostParent(post.ID), in.Photos)
		return err
	})
	observeWrite("create", err)
	if err != nil {
		return nil, s.photos.Abort(ctx, batch, err)
	}

	s.logger.InfoContext(ctx, "post created",
		slog.Int64("post_id", post.ID), slog.Int64("pet_id", post.PetID),
		slog.Bool("new_pet", draft != nil), slog.Int("photos", len(in.Photos)))

	created, err := s.Get(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.PublishPost(ctx, created)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	list := []Post{*post}
	if err := s.hydrate(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Feed returns one page of posts, newest first.
func (s *Service) Feed(ctx context.Context, filter ListFilter) (*FeedResponse, error) {
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Post{}
	}
	if err := s.hydrate(ctx, list); err != nil {
		return nil, err
	}

	page := 1
	if filter.Limit > 0 {
		page = filter.Offset/filter.Limit + 1
	}
	return &FeedResponse{
		Posts: list,
		Pagination: PaginationMeta{
			Page:    page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Offset+len(list) < total,
		},
	}, nil
}

func (s *Service) hydrate(ctx context.Context, list []Post) error {
	ids := make([]int64, len(list))
	petIDs := make([]int64, 0, len(list))
	seen := make(map[int64]bool, len(list))
	for i := range list {
		ids[i] = list[i].ID
		if !seen[list[i].PetID] {
			seen[list[i].PetID] = true
			petIDs = append(petIDs, list[i].PetID)
		}
	}

	petsByID, err := s.pets.GetMany(ctx, petIDs)
	if err != nil {
		return fmt.Errorf("failed to load pets: %w", err)
	}
	pics, err := s.photos.ListForMany(ctx, photos.KindPost, ids)
	if err != nil {
		return fmt.Errorf("failed to load photos: %w", err)
	}

	for i := range list {
		list[i].Pet = petsByID[list[i].PetID]
		list[i].Photos = pics[list[i].ID]
		if list[i].Photos == nil {
			list[i].Photos = []photos.Photo{}
		}
	}
	return nil
}

// Update applies a merge-patch. The pet and the like counter cannot change.
func (s *Service) Update(ctx context.Context, userID, postID int64, in *UpdatePostRequest) (*Post, error) {
	post, err := s.owned(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	verr := &utils.ValidationError{}
	if err := utils.ValidateStruct(in); err != nil {
		v, ok := utils.AsValidationError(err)
		if !ok {
			return nil, err
		}
		verr.Merge("", v)
	}
	if in.Latitude != nil || in.Longitude != nil {
		current := geo.Point{Latitude: post.Latitude, Longitude: post.Longitude}
		point, lerr := pets.MergeLocation(&current, &pets.LocationInput{Latitude: in.Latitude, Longitude: in.Longitude})
		verr.Merge("", lerr)
		if point != nil {
			post.Latitude = point.Latitude
			post.Longitude = point.Longitude
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if in.Description != nil {
		post.Description = *in.Description
	}
	if in.Status != nil {
		post.Status = *in.Status
	}
	post.UpdatedAt = s.now().UTC()

	err = s.repo.Update(ctx, s.db, post)
	observeWrite("update", err)
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return s.Get(ctx, post.ID)
}

// Delete removes a post with its comments, likes and photos. The pet stays.
func (s *Service) Delete(ctx context.Context, userID, postID int64) error {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return err
	}

	var keys []string
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		if keys, err = s.photos.KeysForPost(ctx, tx, postID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, postID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.photos.Purge(ctx, keys)
	s.logger.InfoContext(ctx, "post deleted", slog.Int64("post_id", postID), slog.Int("objects", len(keys)))
	return nil
}

func (s *Service) AddPhotos(ctx context.Context, userID, postID int64, uploads []photos.Upload) ([]photos.Photo, error) {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return nil, err
	}
	added, err := s.photos.Add(ctx, s.db, photos.PostParent(postID), uploads)
	observeWrite("add_photos", err)
	return added, err
}

func (s *Service) DeletePhoto(ctx context.Context, userID, postID, photoID int64) error {
	if _, err := s.owned(ctx, userID, postID); err != nil {
		return err
	}
	return s.photos.Remove(ctx, photos.PostParent(postID), photoID)
}

// Exists reports a not-found error for a missing post.
func (s *Service) Exists(ctx context.Context, postID int64) error {
	_, err := s.repo.Get(ctx, postID)
	return err
}

func (s *Service) owned(ctx context.Context, userID, postID int64) (*Post, error) {
	post, err := s.repo.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, utils.ErrForbidden
	}
	return post, nil
}
