// internal/pets/models.go
package pets

import (
	"time"

	"github.com/furlorn/furlorn-backend/internal/common/geo"
	"github.com/furlorn/furlorn-backend/internal/photos"
)

type Animal string

const (
	AnimalUnknown Animal = "unknown"
	AnimalDog     Animal = "dog"
	AnimalCat     Animal = "cat"
)

// Sex follows ISO/IEC 5218.
type Sex string

const (
	SexUnknown       Sex = "unknown"
	SexMale          Sex = "male"
	SexFemale        Sex = "female"
	SexNotApplicable Sex = "not_applicable"
)

type Color string

const (
	ColorUnknown Color = "unknown"
	ColorWhite   Color = "white"
	ColorBlack   Color = "black"
	ColorBrown   Color = "brown"
	ColorOrange  Color = "orange"
	ColorRed     Color = "red"
	ColorPink    Color = "pink"
	ColorPurple  Color = "purple"
	ColorBlue    Color = "blue"
	ColorGreen   Color = "green"
	ColorYellow  Color = "yellow"
	ColorGray    Color = "gray"
)

type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusLost     Status = "lost"
	StatusFound    Status = "found"
	StatusReunited Status = "reunited"
)

type Breed struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Animal Animal `db:"animal" json:"animal"`
}

// Pet is a pet profile together with its resolved relations.
type Pet struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user"`
	Name          string    `db:"name" json:"name"`
	Animal        Animal    `db:"animal" json:"animal"`
	Sex           Sex       `db:"sex" json:"sex"`
	Age           *int      `db:"age" json:"age"`
	Weight        *int      `db:"weight" json:"weight"`
	EyeColor      Color     `db:"eye_color" json:"eye_color"`
	ExteriorColor Color     `db:"exterior_color" json:"exterior_color"`
	Microchip     *string   `db:"microchip" json:"microchip"`
	Information   string    `db:"information" json:"information"`
	Status        Status    `db:"status" json:"status"`
	Likes         int       `db:"likes" json:"likes"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	Breeds   []Breed        `db:"-" json:"breed"`
	Location *geo.Point     `db:"-" json:"location"`
	Photos   []photos.Photo `db:"-" json:"photos"`
}

// ListFilter narrows GET /pets.
type ListFilter struct {
	Animal Animal
	Status Status
	UserID int64
	Limit  int
	Offset int
}
