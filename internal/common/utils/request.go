// internal/common/utils/request.go
// Request body decoding shared by handlers

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/gorilla/mux"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DecodeJSONObject reads the request body as a single JSON object, keeping
// each value raw so the key set can be checked before decoding.
func DecodeJSONObject(r *http.Request) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, err
		case errors.Is(err, io.EOF):
			return nil, NewValidationError("body", "request body must not be empty")
		default:
			return nil, NewValidationError("body", "must be a JSON object")
		}
	}
	if raw == nil {
		return nil, NewValidationError("body", "must be a JSON object")
	}
	if dec.More() {
		return nil, NewValidationError("body", "must contain a single JSON object")
	}
	return raw, nil
}

// Bind rejects keys outside allowed and then decodes raw into dst.
func Bind(raw map[string]json.RawMessage, allowed FieldSet, dst interface{}) error {
	if err := CheckFields(raw, allowed); err != nil {
		return err
	}
	return DecodeRaw(raw, dst)
}

// DecodeRaw decodes an already-checked raw object into dst.
func DecodeRaw(raw map[string]json.RawMessage, dst interface{}) error {
	body, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("utils.DecodeRaw: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return NewValidationError(field, "must be of type "+jsonTypeName(typeErr.Type))
	}
	return NewValidationError("body", "malformed JSON: "+err.Error())
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		if t.Name() == "Number" {
			return "number"
		}
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}

// PathID reads a positive integer route variable.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, NewValidationError(name, "must be a positive integer")
	}
	return id, nil
}

// Pagination returns limit and offset from the page/limit query parameters.
func Pagination(r *http.Request) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, (page - 1) * limit
}
