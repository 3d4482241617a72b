// internal/pets/dto.go
// Request payloads and the field sets each write accepts.

package pets

import (
	"encoding/json"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
	"github.com/furlorn/furlorn-backend/internal/photos"
)

var (
	LocationFields = utils.NewFieldSet("latitude", "longitude")

	CreateFields = utils.NewFieldSet(
		"name", "animal", "breed", "age", "sex", "eye_color", "exterior_color",
		"weight", "microchip", "information", "status", "location", "photos",
	)
	// UpdateFields never includes the owner, so it cannot be reassigned.
	UpdateFields = CreateFields.Without("photos")
	// NestedFields is accepted for a pet created inside a post; photos belong to the post.
	NestedFields = CreateFields.Without("photos")
)

type LocationInput struct {
	Latitude  *json.Number `json:"latitude"`
	Longitude *json.Number `json:"longitude"`
}

type CreatePetInput struct {
	Name          string          `json:"name" validate:"max=50"`
	Animal        Animal          `json:"animal" validate:"required,oneof=unknown dog cat"`
	Breed         []int64         `json:"breed"`
	Age           *int            `json:"age" validate:"omitempty,gte=0,lte=100"`
	Sex           Sex             `json:"sex" validate:"omitempty,oneof=unknown male female not_applicable"`
	EyeColor      Color           `json:"eye_color" validate:"omitempty,oneof=unknown white black brown orange red pink purple blue green yellow gray"`
	ExteriorColor Color           `json:"exterior_color" validate:"omitempty,oneof=unknown white black brown orange red pink purple blue green yellow gray"`
	Weight        *int            `json:"weight" validate:"omitempty,gte=0,lte=1000"`
	Microchip     *string         `json:"microchip" validate:"omitempty,max=64"`
	Information   string          `json:"information" validate:"max=5000"`
	Status        Status          `json:"status" validate:"required,oneof=unknown lost found reunited"`
	Location      *LocationInput  `json:"location"`
	Photos        []photos.Upload `json:"photos" validate:"-"`
}

// UpdatePetInput is a merge-patch: nil fields keep their stored value.
type UpdatePetInput struct {
	Name          *string        `json:"name" validate:"omitempty,max=50"`
	Animal        *Animal        `json:"animal" validate:"omitempty,oneof=unknown dog cat"`
	Breed         *[]int64       `json:"breed" validate:"-"`
	Age           *int           `json:"age" validate:"omitempty,gte=0,lte=100"`
	Sex           *Sex           `json:"sex" validate:"omitempty,oneof=unknown male female not_applicable"`
	EyeColor      *Color         `json:"eye_color" validate:"omitempty,oneof=unknown white black brown orange red pink purple blue green yellow gray"`
	ExteriorColor *Color         `json:"exterior_color" validate:"omitempty,oneof=unknown white black brown orange red pink purple blue green yellow gray"`
	Weight        *int           `json:"weight" validate:"omitempty,gte=0,lte=1000"`
	Microchip     *string        `json:"microchip" validate:"omitempty,max=64"`
	Information   *string        `json:"information" validate:"omitempty,max=5000"`
	Status        *Status        `json:"status" validate:"omitempty,oneof=unknown lost found reunited"`
	Location      *LocationInput `json:"location"`
}

// CheckNested rejects unknown keys in a pet object nested under prefix,
// including its location.
func CheckNested(raw json.RawMessage, prefix string) error {
	if err := utils.CheckNestedFields(raw, prefix, NestedFields); err != nil {
		return err
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	if loc, ok := nested["location"]; ok {
		return utils.CheckNestedFields(loc, prefix+".location", LocationFields)
	}
	return nil
}
