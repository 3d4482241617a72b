// internal/users/models.go
// Public profiles, account updates and postal addresses.

package users

import (
	"time"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

// Profile is the public view of an account with a few activity counters.
type Profile struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Pets      int       `json:"pets" db:"pets"`
	Posts     int       `json:"posts" db:"posts"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Address is a postal address that only its owner can see.
type Address struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user" db:"user_id"`
	Street    string    `json:"street" db:"street"`
	City      string    `json:"city" db:"city"`
	State     string    `json:"state" db:"state"`
	Zip       string    `json:"zip" db:"zip"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

var (
	UpdateFields  = utils.NewFieldSet("email", "first_name", "last_name")
	AddressFields = utils.NewFieldSet("street", "city", "state", "zip", "country")
)

// UpdateProfileRequest is a merge-patch on the account. The username is fixed.
type UpdateProfileRequest struct {
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

type CreateAddressRequest struct {
	Street  string `json:"street" validate:"required,max=255"`
	City    string `json:"city" validate:"required,max=100"`
	State   string `json:"state" validate:"max=100"`
	Zip     string `json:"zip" validate:"max=20"`
	Country string `json:"country" validate:"required,max=100"`
}

type UpdateAddressRequest struct {
	Street  *string `json:"street" validate:"omitempty,max=255"`
	City    *string `json:"city" validate:"omitempty,max=100"`
	State   *string `json:"state" validate:"omitempty,max=100"`
	Zip     *string `json:"zip" validate:"omitempty,max=20"`
	Country *string `json:"country" validate:"omitempty,max=100"`
}
