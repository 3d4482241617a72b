// internal/photos/upload.go
package photos

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/furlorn/furlorn-backend/internal/common/utils"
)

// FromMultipart reads the parts uploaded under one form key. Each file's
// order is its index in the form.
func FromMultipart(files []*multipart.FileHeader) ([]Upload, error) {
	uploads := make([]Upload, 0, len(files))
	for i, fh := range files {
		if fh.Size > MaxPhotoSize {
			return nil, utils.NewValidationError(fmt.Sprintf("photos[%d]", i), "file exceeds the 10MB limit")
		}
		content, err := utils.ReadFile(fh)
		if err != nil {
			return nil, err
		}
		order := i
		uploads = append(uploads, Upload{Order: &order, Filename: fh.Filename, Content: content})
	}
	return uploads, nil
}

var addFields = utils.NewFieldSet("photos")

// ReadUploads reads the body of an add-photos request: multipart files under
// "photos", or a JSON object {"photos": [{"order", "filename", "content"}]}.
func ReadUploads(r *http.Request, maxMemory int64) ([]Upload, error) {
	payload, err := utils.ReadPayload(r, maxMemory)
	if err != nil {
		return nil, err
	}
	if err := payload.Check(addFields); err != nil {
		return nil, err
	}
	if raw, ok := payload.Fields["photos"]; ok {
		if err := utils.CheckNestedItems(raw, "photos", ItemFields); err != nil {
			return nil, err
		}
	}

	var in struct {
		Photos []Upload `json:"photos"`
	}
	if err := payload.Decode(&in); err != nil {
		return nil, err
	}
	files, err := FromMultipart(payload.Files["photos"])
	if err != nil {
		return nil, err
	}
	return append(in.Photos, files...), nil
}

// Normalize assigns base+index to every upload without an explicit order and
// validates the batch. Nothing is written when it fails.
func Normalize(uploads []Upload, base int) error {
	verr := &utils.ValidationError{}
	seen := make(map[int]int, len(uploads))
	for i := range uploads {
		u := &uploads[i]
		field := fmt.Sprintf("photos[%d]", i)
		if u.Order == nil {
			order := base + i
			u.Order = &order
		}

		switch {
		case *u.Order < 0:
			verr.Add(field+".order", "must be greater than or equal to 0")
		default:
			if prev, dup := seen[*u.Order]; dup {
				verr.Add(field+".order", fmt.Sprintf("duplicates the order of photos[%d]", prev))
			} else {
				seen[*u.Order] = i
			}
		}

		if strings.TrimSpace(u.Filename) == "" {
			verr.Add(field+".filename", "this field is required")
		} else if !allowedExtensions[strings.ToLower(path.Ext(u.Filename))] {
			verr.Add(field+".filename", "unsupported image type")
		}
		if len(u.Content) == 0 {
			verr.Add(field+".content", "must not be empty")
		} else if len(u.Content) > MaxPhotoSize {
			verr.Add(field+".content", "file exceeds the 10MB limit")
		}
	}
	return verr.Err()
}
