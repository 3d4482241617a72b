// internal/users/service.go

package users

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/auth"
	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/photos"
)

// Service defines account management. Every mutation is limited to the
// account of the caller.
type Service interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, callerID, userID int64, req *UpdateProfileRequest) (*Profile, error)
	DeleteUser(ctx context.Context, callerID, userID int64) error

	ListAddresses(ctx context.Context, callerID, userID int64) ([]Address, error)
	CreateAddress(ctx context.Context, callerID, userID int64, req *CreateAddressRequest) (*Address, error)
	UpdateAddress(ctx context.Context, callerID, userID, addressID int64, req *UpdateAddressRequest) (*Address, error)
	DeleteAddress(ctx context.Context, callerID, userID, addressID int64) error
}

type service struct {
	db     *sqlx.DB
	repo   Repository
	photos *photos.Service
	auth   auth.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a users service
func NewService(db *sqlx.DB, repo Repository, photoService *photos.Service, authService auth.Service, logger *slog.Logger) Service {
	return &service{
		db:     db,
		repo:   repo,
		photos: photoService,
		auth:   authService,
		logger: logger.With(slog.String("component", "users")),
		now:    time.Now,
	}
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	return s.repo.GetProfile(ctx, userID)
}

// self checks that userID exists and is the caller.
func (s *service) self(ctx context.Context, callerID, userID int64) (*Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if callerID != userID {
		return nil, utils.ErrForbidden
	}
	return profile, nil
}

func (s *service) UpdateProfile(ctx context.Context, callerID, userID int64, req *UpdateProfileRequest) (*Profile, error) {
	profile, err := s.self(ctx, callerID, userID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	if req.Email != nil {
		profile.Email = *req.Email
	}
	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	profile.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.repo.GetProfile(ctx, userID)
}

// DeleteUser removes the account with everything it owns, revokes its tokens
// and then deletes the photo objects of its pets and posts.
func (s *service) DeleteUser(ctx context.Context, callerID, userID int64) error {
	if _, err := s.self(ctx, callerID, userID); err != nil {
		return err
	}

	var keys []string
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		if keys, err = s.photos.KeysForUser(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.repo.ReleaseLikes(ctx, tx, userID); err != nil {
			return err
		}
		return s.repo.DeleteUser(ctx, tx, userID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if err := s.auth.LogoutAll(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "tokens of deleted user not revoked",
			slog.Int64("user_id", userID), slog.Any("error", err))
	}
	s.photos.Purge(ctx, keys)
	s.logger.InfoContext(ctx, "user deleted", slog.Int64("user_id", userID), slog.Int("objects", len(keys)))
	return nil
}

func (s *service) ListAddresses(ctx context.Context, callerID, userID int64) ([]Address, error) {
	if _, err := s.self(ctx, callerID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListAddresses(ctx, userID)
}

func (s *service) CreateAddress(ctx context.Context, callerID, userID int64, req *CreateAddressRequest) (*Address, error) {
	if _, err := s.self(ctx, callerID, userID); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	address := &Address{
		UserID:    userID,
		Street:    req.Street,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return address, nil
}

func (s *service) UpdateAddress(ctx context.Context, callerID, userID, addressID int64, req *UpdateAddressRequest) (*Address, error) {
	if _, err := s.self(ctx, callerID, userID); err != nil {
		return nil, err
	}
	address, err := s.repo.GetAddress(ctx, userID, addressID)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	if req.Street != nil {
		address.Street = *req.Street
	}
	if req.City != nil {
		address.City = *req.City
	}
	if req.State != nil {
		address.State = *req.State
	}
	if req.Zip != nil {
		address.Zip = *req.Zip
	}
	if req.Country != nil {
		address.Country = *req.Country
	}

	if err := s.repo.UpdateAddress(ctx, address); err != nil {
		return nil, fmt.Errorf("failed to update address: %w", err)
	}
	return address, nil
}

func (s *service) DeleteAddress(ctx context.Context, callerID, userID, addressID int64) error {
	if _, err := s.self(ctx, callerID, userID); err != nil {
		return err
	}
	if _, err := s.repo.GetAddress(ctx, userID, addressID); err != nil {
		return err
	}
	return s.repo.DeleteAddress(ctx, userID, addressID)
}
