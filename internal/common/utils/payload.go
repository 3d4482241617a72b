// internal/common/utils/payload.go
// One view over JSON and multipart request bodies

package utils

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
)

// Payload is a decoded request body whose key set can be checked before the
// values are bound to a struct.
type Payload struct {
	Fields map[string]json.RawMessage
	Files  map[string][]*multipart.FileHeader
	form   *Form
}

// ReadPayload reads r as multipart/form-data when it says so, otherwise as a
// JSON object.
func ReadPayload(r *http.Request, maxMemory int64) (*Payload, error) {
	if IsMultipart(r) {
		form, err := ParseMultipartForm(r, maxMemory)
		if err != nil {
			return nil, err
		}
		return &Payload{Fields: form.Raw(), Files: form.Files, form: form}, nil
	}

	raw, err := DecodeJSONObject(r)
	if err != nil {
		return nil, err
	}
	return &Payload{Fields: raw, Files: map[string][]*multipart.FileHeader{}}, nil
}

// Check rejects every top-level key outside allowed.
func (p *Payload) Check(allowed FieldSet) error {
	keys := make(map[string]struct{}, len(p.Fields)+len(p.Files))
	for k := range p.Fields {
		keys[k] = struct{}{}
	}
	for k := range p.Files {
		keys[k] = struct{}{}
	}
	return CheckFields(keys, allowed)
}

// CheckNested rejects unknown keys inside the object supplied under key.
func (p *Payload) CheckNested(key string, allowed FieldSet) error {
	raw, ok := p.Fields[key]
	if !ok {
		return nil
	}
	return CheckNestedFields(raw, key, allowed)
}

// Decode binds the values to dst.
func (p *Payload) Decode(dst interface{}) error {
	if p.form != nil {
		return p.form.Decode(dst)
	}
	return DecodeRaw(p.Fields, dst)
}
