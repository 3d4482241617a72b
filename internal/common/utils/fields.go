// internal/common/utils/fields.go
// Closed-world field whitelist for request payloads

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FieldSet is the declared set of keys an entity write accepts.
type FieldSet map[string]struct{}

// NewFieldSet builds a FieldSet from names.
func NewFieldSet(names ...string) FieldSet {
	s := make(FieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Without returns a copy of s minus names.
func (s FieldSet) Without(names ...string) FieldSet {
	out := make(FieldSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// Has reports whether name is declared.
func (s FieldSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// UnknownFieldsError names every key that is not part of the declared set.
type UnknownFieldsError struct {
	Fields []string
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("unknown fields: %s", strings.Join(e.Fields, ", "))
}

// ValidationError converts e into the per-field form used in responses.
func (e *UnknownFieldsError) ValidationError() *ValidationError {
	v := &ValidationError{}
	for _, f := range e.Fields {
		v.Add(f, "unknown field")
	}
	return v
}

// CheckFields fails with *UnknownFieldsError when input holds keys outside allowed.
func CheckFields[V any](input map[string]V, allowed FieldSet) error {
	var unknown []string
	for k := range input {
		if !allowed.Has(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &UnknownFieldsError{Fields: unknown}
}

// CheckNestedFields applies CheckFields to a nested JSON object and reports
// unknown keys as prefix.key. A value that is not an object is left for the
// decoding step to reject.
func CheckNestedFields(raw []byte, prefix string, allowed FieldSet) error {
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
		return nil
	}
	err := CheckFields(nested, allowed)
	var uerr *UnknownFieldsError
	if !errors.As(err, &uerr) {
		return err
	}
	for i, f := range uerr.Fields {
		uerr.Fields[i] = prefix + "." + f
	}
	return uerr
}

// CheckNestedItems applies CheckFields to every object of a JSON array and
// reports unknown keys as prefix[i].key.
func CheckNestedItems(raw []byte, prefix string, allowed FieldSet) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var unknown []string
	for i, item := range items {
		err := CheckNestedFields(item, fmt.Sprintf("%s[%d]", prefix, i), allowed)
		var uerr *UnknownFieldsError
		if errors.As(err, &uerr) {
			unknown = append(unknown, uerr.Fields...)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return &UnknownFieldsError{Fields: unknown}
}
