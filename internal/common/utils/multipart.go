// internal/common/utils/multipart.go
// Multipart form parsing with JSON-encoded nested fields
// Multipart has no native nesting, so clients send objects such as
// location or pet as JSON strings inside ordinary form values.

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

// Form is a parsed multipart request.
type Form struct {
	Values map[string]string
	Files  map[string][]*multipart.FileHeader
}

// IsMultipart reports whether r carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// ParseMultipartForm parses r keeping at most maxMemory bytes of files in memory.
// A repeated text field keeps its first value.
func ParseMultipartForm(r *http.Request, maxMemory int64) (*Form, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, NewValidationError("body", "malformed multipart form")
	}

	form := &Form{
		Values: make(map[string]string, len(r.MultipartForm.Value)),
		Files:  r.MultipartForm.File,
	}
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			form.Values[k] = vs[0]
		}
	}
	if form.Files == nil {
		form.Files = map[string][]*multipart.FileHeader{}
	}
	return form, nil
}

// Raw converts the text values into JSON. Values containing '[' or '{' that
// parse as JSON are embedded as is, as are bare numbers and booleans. Every
// other value becomes a JSON string.
func (f *Form) Raw() map[string]json.RawMessage {
	raw := make(map[string]json.RawMessage, len(f.Values))
	for k, v := range f.Values {
		raw[k] = formValue(v)
	}
	return raw
}

func formValue(v string) json.RawMessage {
	trimmed := strings.TrimSpace(v)
	if strings.ContainsAny(trimmed, "[{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	if trimmed != "" && !strings.HasPrefix(trimmed, `"`) && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(v)
	return quoted
}

// Decode decodes the text values into dst. A scalar that was guessed as a
// number or boolean but targets a string field is retried as a string.
func (f *Form) Decode(dst interface{}) error {
	raw := f.Raw()
	for attempt := 0; attempt <= len(raw); attempt++ {
		body, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("utils.Form.Decode: %w", err)
		}
		err = json.Unmarshal(body, dst)
		if err == nil {
			return nil
		}

		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) || (typeErr.Value != "number" && typeErr.Value != "bool") {
			return decodeError(err)
		}
		original, ok := f.Values[typeErr.Field]
		if !ok {
			return decodeError(err)
		}
		quoted, _ := json.Marshal(original)
		if string(raw[typeErr.Field]) == string(quoted) {
			return decodeError(err)
		}
		raw[typeErr.Field] = quoted
	}
	return NewValidationError("body", "could not decode form")
}

// ReadFile loads an uploaded part fully into memory.
func ReadFile(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("utils.ReadFile: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("utils.ReadFile: %w", err)
	}
	return content, nil
}
