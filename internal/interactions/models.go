// internal/interactions/models.go
package interactions

import (
	"time"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

// Kind names the entity that can be liked or commented on.
type Kind string

const (
	KindPet  Kind = "pet"
	KindPost Kind = "post"
)

type Target struct {
	Kind Kind
	ID   int64
}

func (t Target) column() string {
	if t.Kind == KindPost {
		return "post_id"
	}
	return "pet_id"
}

func (t Target) table() string {
	if t.Kind == KindPost {
		return "posts"
	}
	return "pets"
}

func (t Target) String() string {
	return string(t.Kind)
}

type Comment struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user"`
	PetID     *int64    `db:"pet_id" json:"pet,omitempty"`
	PostID    *int64    `db:"post_id" json:"post,omitempty"`
	ReplyTo   *int64    `db:"reply_to" json:"reply_to"`
	Text      string    `db:"text" json:"text"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Replies   []Comment `db:"-" json:"replies,omitempty"`
}

func (c *Comment) on(t Target) bool {
	if t.Kind == KindPost {
		return c.PostID != nil && *c.PostID == t.ID
	}
	return c.PetID != nil && *c.PetID == t.ID
}

// LikeState is returned by like and unlike.
type LikeState struct {
	Liked bool `json:"liked"`
	Likes int  `json:"likes"`
}

var CommentFields = utils.NewFieldSet("text", "reply_to")

type CommentRequest struct {
	Text    string `json:"text" validate:"required,max=2000"`
	ReplyTo *int64 `json:"reply_to" validate:"omitempty,gt=0"`
}
