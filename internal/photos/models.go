// internal/photos/models.go
package photos

import (
	"database/sql"
	"time"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

// MaxPhotoSize bounds a single uploaded image.
const MaxPhotoSize = 10 << 20

// ItemFields are the keys accepted for one photo in a JSON payload.
var ItemFields = utils.NewFieldSet("order", "filename", "content")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".heic": true,
}

// Kind names the entity a photo belongs to.
type Kind string

const (
	KindPet  Kind = "pet"
	KindPost Kind = "post"
)

// Parent identifies the pet or post owning a photo.
type Parent struct {
	Kind Kind
	ID   int64
}

func PetParent(id int64) Parent  { return Parent{Kind: KindPet, ID: id} }
func PostParent(id int64) Parent { return Parent{Kind: KindPost, ID: id} }

func (p Parent) column() string {
	if p.Kind == KindPost {
		return "post_id"
	}
	return "pet_id"
}

type Photo struct {
	ID          int64         `db:"id" json:"id"`
	PetID       sql.NullInt64 `db:"pet_id" json:"-"`
	PostID      sql.NullInt64 `db:"post_id" json:"-"`
	ObjectKey   string        `db:"object_key" json:"-"`
	Order       int           `db:"position" json:"order"`
	ContentType string        `db:"content_type" json:"-"`
	CreatedAt   time.Time     `db:"created_at" json:"-"`
	URL         *string       `db:"-" json:"url"`
}

func (p *Photo) parentID() int64 {
	if p.PostID.Valid {
		return p.PostID.Int64
	}
	return p.PetID.Int64
}

// Upload is one image received with a write. Content is base64 in JSON
// payloads and the raw part in multipart ones.
type Upload struct {
	Order    *int   `json:"order"`
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}
