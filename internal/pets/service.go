// internal/pets/service.go
package pets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/geo"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/photos"
	"github.com/furlorn/furlorn-backend/internal/storage"
)

type Service struct {
	db     *sqlx.DB
	repo   *Repository
	photos *photos.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *sqlx.DB, repo *Repository, photoService *photos.Service, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		photos: photoService,
		logger: logger.With(slog.String("component", "pets")),
		now:    time.Now,
	}
}

// Draft is a pet payload that passed validation and can be written.
type Draft struct {
	pet      Pet
	breedIDs []int64
	location geo.Point
	uploads  []photos.Upload
}

// Prepare validates a create payload without touching storage. When the
// payload has no location, fallback is used; with no fallback a location is
// required.
func (s *Service) Prepare(ctx context.Context, in *CreatePetInput, fallback *geo.Point) (*Draft, error) {
	verr := &utils.ValidationError{}
	if err := utils.ValidateStruct(in); err != nil {
		v, ok := utils.AsValidationError(err)
		if !ok {
			return nil, err
		}
		verr.Merge("", v)
	}

	d := &Draft{
		pet: Pet{
			Name:          in.Name,
			Animal:        in.Animal,
			Sex:           orDefault(in.Sex, SexUnknown),
			Age:           in.Age,
			Weight:        in.Weight,
			EyeColor:      orDefault(in.EyeColor, ColorUnknown),
			ExteriorColor: orDefault(in.ExteriorColor, ColorUnknown),
			Microchip:     in.Microchip,
			Information:   in.Information,
			Status:        in.Status,
		},
		breedIDs: in.Breed,
		uploads:  in.Photos,
	}

	switch {
	case in.Location != nil:
		point, lerr := MergeLocation(nil, in.Location)
		verr.Merge("location", lerr)
		if point != nil {
			d.location = *point
		}
	case fallback != nil:
		d.location = *fallback
	default:
		verr.Add("location", "this field is required")
	}

	if err := photos.Normalize(d.uploads, 0); err != nil {
		v, _ := utils.AsValidationError(err)
		verr.Merge("", v)
	}

	if verr.HasErrors() {
		return nil, verr
	}
	if err := s.checkBreeds(ctx, in.Breed, in.Animal); err != nil {
		return nil, err
	}
	return d, nil
}

// Insert writes a prepared pet with its breed links, location and photos
// inside tx. Uploaded objects are recorded in batch so the caller can undo
// them if the transaction fails.
func (s *Service) Insert(ctx context.Context, tx database.Querier, batch *storage.Batch, userID int64, d *Draft) (int64, error) {
	now := s.now().UTC()
	pet := d.pet
	pet.UserID = userID
	pet.CreatedAt = now
	pet.UpdatedAt = now

	if err := s.repo.Insert(ctx, tx, &pet); err != nil {
		return 0, fmt.Errorf("failed to insert pet: %w", err)
	}
	if err := s.repo.SetBreeds(ctx, tx, pet.ID, d.breedIDs); err != nil {
		return 0, fmt.Errorf("failed to link breeds: %w", err)
	}
	if err := s.repo.UpsertLocation(ctx, tx, pet.ID, d.location, now); err != nil {
		return 0, fmt.Errorf("failed to save location: %w", err)
	}
	if _, err := s.photos.Attach(ctx, tx, batch, photos.PetParent(pet.ID), d.uploads); err != nil {
		return 0, err
	}
	return pet.ID, nil
}

// Create stores a pet with its breeds, location and photos as one unit.
// Either every row and object is written or none is.
func (s *Service) Create(ctx context.Context, userID int64, in *CreatePetInput) (*Pet, error) {
	draft, err := s.Prepare(ctx, in, nil)
	if err != nil {
		return nil, err
	}

	batch := s.photos.NewBatch()
	var petID int64
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		petID, err = s.Insert(ctx, tx, batch, userID, draft)
		return err
	})
	if err != nil {
		observeWrite("create", err)
		return nil, s.photos.Abort(ctx, batch, err)
	}
	observeWrite("create", nil)

	s.logger.InfoContext(ctx, "pet created",
		slog.Int64("pet_id", petID), slog.Int64("user_id", userID), slog.Int("photos", len(draft.uploads)))
	return s.Get(ctx, petID)
}

// Get returns a pet with its breeds, location and photos resolved.
func (s *Service) Get(ctx context.Context, id int64) (*Pet, error) {
	pet, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	list := []Pet{*pet}
	if err := s.hydrate(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// GetMany returns hydrated pets keyed by id. Missing ids are skipped.
func (s *Service) GetMany(ctx context.Context, ids []int64) (map[int64]*Pet, error) {
	list, err := s.repo.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, list); err != nil {
		return nil, err
	}
	out := make(map[int64]*Pet, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Pet, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Pet{}
	}
	if err := s.hydrate(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) hydrate(ctx context.Context, list []Pet) error {
	ids := make([]int64, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}

	breeds, err := s.repo.BreedsFor(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load breeds: %w", err)
	}
	locations, err := s.repo.LocationsFor(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load locations: %w", err)
	}
	pics, err := s.photos.ListForMany(ctx, photos.KindPet, ids)
	if err != nil {
		return fmt.Errorf("failed to load photos: %w", err)
	}

	for i := range list {
		id := list[i].ID
		list[i].Breeds = nonNil(breeds[id])
		list[i].Location = locations[id]
		list[i].Photos = nonNil(pics[id])
	}
	return nil
}

// Update applies a merge-patch. A supplied breed list replaces the current
// one; a supplied location only overwrites the coordinates it carries.
func (s *Service) Update(ctx context.Context, userID, petID int64, in *UpdatePetInput) (*Pet, error) {
	pet, err := s.owned(ctx, userID, petID)
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

	applyUpdate(pet, in)

	var location *geo.Point
	if in.Location != nil {
		current, err := s.repo.LocationsFor(ctx, []int64{pet.ID})
		if err != nil {
			return nil, err
		}
		point, lerr := MergeLocation(current[pet.ID], in.Location)
		verr.Merge("location", lerr)
		location = point
	}
	if verr.HasErrors() {
		return nil, verr
	}

	var breedIDs []int64
	switch {
	case in.Breed != nil:
		breedIDs = *in.Breed
	case in.Animal != nil:
		// the stored breeds must still match a changed animal
		current, err := s.repo.BreedsFor(ctx, []int64{pet.ID})
		if err != nil {
			return nil, err
		}
		for _, b := range current[pet.ID] {
			breedIDs = append(breedIDs, b.ID)
		}
	}
	if in.Breed != nil || in.Animal != nil {
		if err := s.checkBreeds(ctx, breedIDs, pet.Animal); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	pet.UpdatedAt = now
	err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.repo.Update(ctx, tx, pet); err != nil {
			return fmt.Errorf("failed to update pet: %w", err)
		}
		if in.Breed != nil {
			if err := s.repo.SetBreeds(ctx, tx, pet.ID, breedIDs); err != nil {
				return fmt.Errorf("failed to link breeds: %w", err)
			}
		}
		if location != nil {
			if err := s.repo.UpsertLocation(ctx, tx, pet.ID, *location, now); err != nil {
				return fmt.Errorf("failed to save location: %w", err)
			}
		}
		return nil
	})
	observeWrite("update", err)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, pet.ID)
}

// Delete removes a pet and everything hanging off it, then its photo objects.
func (s *Service) Delete(ctx context.Context, userID, petID int64) error {
	if _, err := s.owned(ctx, userID, petID); err != nil {
		return err
	}

	var keys []string
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var err error
		if keys, err = s.photos.KeysForPet(ctx, tx, petID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, petID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete pet: %w", err)
	}

	s.photos.Purge(ctx, keys)
	s.logger.InfoContext(ctx, "pet deleted", slog.Int64("pet_id", petID), slog.Int("objects", len(keys)))
	return nil
}

func (s *Service) AddPhotos(ctx context.Context, userID, petID int64, uploads []photos.Upload) ([]photos.Photo, error) {
	if _, err := s.owned(ctx, userID, petID); err != nil {
		return nil, err
	}
	added, err := s.photos.Add(ctx, s.db, photos.PetParent(petID), uploads)
	observeWrite("add_photos", err)
	return added, err
}

func (s *Service) DeletePhoto(ctx context.Context, userID, petID, photoID int64) error {
	if _, err := s.owned(ctx, userID, petID); err != nil {
		return err
	}
	return s.photos.Remove(ctx, photos.PetParent(petID), photoID)
}

func (s *Service) Breeds(ctx context.Context, animal Animal) ([]Breed, error) {
	return s.repo.ListBreeds(ctx, animal)
}

// OwnerOf returns the owner of a pet or a not-found error.
func (s *Service) OwnerOf(ctx context.Context, petID int64) (int64, error) {
	return s.repo.OwnerOf(ctx, petID)
}

// owned loads a pet and checks that userID owns it. Existence is checked first.
func (s *Service) owned(ctx context.Context, userID, petID int64) (*Pet, error) {
	pet, err := s.repo.Get(ctx, petID)
	if err != nil {
		return nil, err
	}
	if pet.UserID != userID {
		return nil, utils.ErrForbidden
	}
	return pet, nil
}

// checkBreeds verifies that every breed exists and belongs to animal.
func (s *Service) checkBreeds(ctx context.Context, ids []int64, animal Animal) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return utils.NewValidationError("breed", "must not contain duplicates")
		}
		seen[id] = true
	}

	found, err := s.repo.FindBreeds(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load breeds: %w", err)
	}
	byID := make(map[int64]Breed, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}

	verr := &utils.ValidationError{}
	for _, id := range ids {
		b, ok := byID[id]
		if !ok {
			return fmt.Errorf("breed %d %w", id, utils.ErrNotFound)
		}
		if b.Animal != animal {
			verr.Add("breed", fmt.Sprintf("%s is a %s breed, not a %s breed", b.Name, b.Animal, animal))
		}
	}
	return verr.Err()
}

func applyUpdate(pet *Pet, in *UpdatePetInput) {
	if in.Name != nil {
		pet.Name = *in.Name
	}
	if in.Animal != nil {
		pet.Animal = *in.Animal
	}
	if in.Age != nil {
		pet.Age = in.Age
	}
	if in.Sex != nil {
		pet.Sex = *in.Sex
	}
	if in.EyeColor != nil {
		pet.EyeColor = *in.EyeColor
	}
	if in.ExteriorColor != nil {
		pet.ExteriorColor = *in.ExteriorColor
	}
	if in.Weight != nil {
		pet.Weight = in.Weight
	}
	if in.Microchip != nil {
		pet.Microchip = in.Microchip
	}
	if in.Information != nil {
		pet.Information = *in.Information
	}
	if in.Status != nil {
		pet.Status = *in.Status
	}
}

// MergeLocation overlays the supplied coordinates on current. Without a
// current location both coordinates are required.
func MergeLocation(current *geo.Point, in *LocationInput) (*geo.Point, *utils.ValidationError) {
	verr := &utils.ValidationError{}
	var merged geo.Point
	if current != nil {
		merged = *current
	}

	if in.Latitude != nil {
		lat, err := geo.ParseLatitude(*in.Latitude)
		if err != nil {
			verr.Add("latitude", err.Error())
		}
		merged.Latitude = lat
	} else if current == nil {
		verr.Add("latitude", "this field is required")
	}

	if in.Longitude != nil {
		lon, err := geo.ParseLongitude(*in.Longitude)
		if err != nil {
			verr.Add("longitude", err.Error())
		}
		merged.Longitude = lon
	} else if current == nil {
		verr.Add("longitude", "this field is required")
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return &merged, nil
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
