// internal/pets/repository.go
package pets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/furlorn/furlorn-backend/internal/common/database"
	"github.com/furlorn/furlorn-backend/internal/common/geo"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

const petColumns = `
	p.id, p.user_id, p.name, p.animal, p.sex, p.age, p.weight, p.eye_color, p.exterior_color,
	p.microchip, p.information, p.status, p.created_at, p.updated_at,
	(SELECT COUNT(*) FROM likes l WHERE l.pet_id = p.id) AS likes`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(ctx context.Context, q database.Querier, pet *Pet) error {
	query := `
		INSERT INTO pets (user_id, name, animal, sex, age, weight, eye_color, exterior_color,
			microchip, information, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`

	return q.QueryRowxContext(ctx, q.Rebind(query),
		pet.UserID, pet.Name, pet.Animal, pet.Sex, pet.Age, pet.Weight, pet.EyeColor, pet.ExteriorColor,
		pet.Microchip, pet.Information, pet.Status, pet.CreatedAt, pet.UpdatedAt,
	).Scan(&pet.ID)
}

func (r *Repository) Get(ctx context.Context, id int64) (*Pet, error) {
	var pet Pet
	err := r.db.GetContext(ctx, &pet, r.db.Rebind(`SELECT `+petColumns+` FROM pets p WHERE p.id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pet %w", utils.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *Repository) ByIDs(ctx context.Context, ids []int64) ([]Pet, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+petColumns+` FROM pets p WHERE p.id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []Pet
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

// OwnerOf returns the owning user of a pet.
func (r *Repository) OwnerOf(ctx context.Context, id int64) (int64, error) {
	var owner int64
	err := r.db.GetContext(ctx, &owner, r.db.Rebind(`SELECT user_id FROM pets WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("pet %w", utils.ErrNotFound)
	}
	return owner, err
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]Pet, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Animal != "" {
		where = append(where, "p.animal = ?")
		args = append(args, f.Animal)
	}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.UserID > 0 {
		where = append(where, "p.user_id = ?")
		args = append(args, f.UserID)
	}

	query := `SELECT ` + petColumns + ` FROM pets p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var out []Pet
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, q database.Querier, pet *Pet) error {
	query := `
		UPDATE pets SET name = ?, animal = ?, sex = ?, age = ?, weight = ?, eye_color = ?,
			exterior_color = ?, microchip = ?, information = ?, status = ?, updated_at = ?
		WHERE id = ?`

	_, err := q.ExecContext(ctx, q.Rebind(query),
		pet.Name, pet.Animal, pet.Sex, pet.Age, pet.Weight, pet.EyeColor,
		pet.ExteriorColor, pet.Microchip, pet.Information, pet.Status, pet.UpdatedAt,
		pet.ID,
	)
	return err
}

func (r *Repository) Delete(ctx context.Context, q database.Querier, id int64) error {
	_, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM pets WHERE id = ?`), id)
	return err
}

// SetBreeds replaces the breed links of a pet.
func (r *Repository) SetBreeds(ctx context.Context, q database.Querier, petID int64, breedIDs []int64) error {
	if _, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM pet_breeds WHERE pet_id = ?`), petID); err != nil {
		return err
	}
	for _, id := range breedIDs {
		_, err := q.ExecContext(ctx, q.Rebind(`INSERT INTO pet_breeds (pet_id, breed_id) VALUES (?, ?)`), petID, id)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) BreedsFor(ctx context.Context, petIDs []int64) (map[int64][]Breed, error) {
	out := make(map[int64][]Breed, len(petIDs))
	if len(petIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT pb.pet_id, b.id, b.name, b.animal
		FROM pet_breeds pb
		JOIN breeds b ON b.id = pb.breed_id
		WHERE pb.pet_id IN (?)
		ORDER BY b.name, b.id`, petIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		PetID int64 `db:"pet_id"`
		Breed
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PetID] = append(out[row.PetID], row.Breed)
	}
	return out, nil
}

func (r *Repository) FindBreeds(ctx context.Context, ids []int64) ([]Breed, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, animal FROM breeds WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var out []Breed
	err = r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

func (r *Repository) ListBreeds(ctx context.Context, animal Animal) ([]Breed, error) {
	query := `SELECT id, name, animal FROM breeds`
	var args []interface{}
	if animal != "" {
		query += ` WHERE animal = ?`
		args = append(args, animal)
	}
	query += ` ORDER BY animal, name`

	out := []Breed{}
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...)
	return out, err
}

// LocationsFor returns the last known location of each pet that has one.
func (r *Repository) LocationsFor(ctx context.Context, petIDs []int64) (map[int64]*geo.Point, error) {
	out := make(map[int64]*geo.Point, len(petIDs))
	if len(petIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT pet_id, latitude, longitude FROM pet_locations WHERE pet_id IN (?)`, petIDs)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		PetID int64 `db:"pet_id"`
		geo.Point
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		p := row.Point
		out[row.PetID] = &p
	}
	return out, nil
}

func (r *Repository) UpsertLocation(ctx context.Context, q database.Querier, petID int64, p geo.Point, now time.Time) error {
	query := `
		INSERT INTO pet_locations (pet_id, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (pet_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at`

	_, err := q.ExecContext(ctx, q.Rebind(query), petID, p.Latitude, p.Longitude, now)
	return err
}
