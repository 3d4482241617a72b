// internal/posts/models.go
package posts

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/furlorn/furlorn-backend/internal/common/geo"
	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/pets"
	"github.com/furlorn/furlorn-backend/internal/photos"
)

type Status string

const (
	StatusLost     Status = "lost"
	StatusFound    Status = "found"
	StatusResolved Status = "resolved"
)

// Post is a lost or found report about one pet.
type Post struct {
	ID          int64           `db:"id" json:"id"`
	UserID      int64           `db:"user_id" json:"user"`
	PetID       int64           `db:"pet_id" json:"pet_id"`
	Description string          `db:"description" json:"description"`
	Status      Status          `db:"status" json:"status"`
	Latitude    decimal.Decimal `db:"latitude" json:"-"`
	Longitude   decimal.Decimal `db:"longitude" json:"-"`
	Likes       int             `db:"likes" json:"likes"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`

	Pet    *pets.Pet      `db:"-" json:"pet"`
	Photos []photos.Photo `db:"-" json:"photos"`
}

// MarshalJSON renders the coordinates as JSON numbers.
func (p Post) MarshalJSON() ([]byte, error) {
	type alias Post
	return json.Marshal(struct {
		alias
		Latitude  json.Number `json:"latitude"`
		Longitude json.Number `json:"longitude"`
	}{alias(p), geo.Number(p.Latitude), geo.Number(p.Longitude)})
}

type PaginationMeta struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

type FeedResponse struct {
	Posts      []Post         `json:"posts"`
	Pagination PaginationMeta `json:"pagination"`
}

type ListFilter struct {
	Status Status
	UserID int64
	Limit  int
	Offset int
}

var (
	CreateFields = utils.NewFieldSet("description", "status", "latitude", "longitude", "pet", "pet_id", "photos")
	UpdateFields = utils.NewFieldSet("description", "status", "latitude", "longitude")
)

type CreatePostRequest struct {
	Description string               `json:"description" validate:"max=5000"`
	Status      Status               `json:"status" validate:"required,oneof=lost found resolved"`
	Latitude    *json.Number         `json:"latitude"`
	Longitude   *json.Number         `json:"longitude"`
	Pet         *pets.CreatePetInput `json:"pet" validate:"-"`
	PetID       *int64               `json:"pet_id" validate:"omitempty,gt=0"`
	Photos      []photos.Upload      `json:"photos" validate:"-"`
}

type UpdatePostRequest struct {
	Description *string      `json:"description" validate:"omitempty,max=5000"`
	Status      *Status      `json:"status" validate:"omitempty,oneof=lost found resolved"`
	Latitude    *json.Number `json:"latitude"`
	Longitude   *json.Number `json:"longitude"`
}
