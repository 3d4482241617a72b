package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

const maxNameAttempts = 5

// existenceChecker is the part of ObjectStore the name search needs.
type existenceChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// UniqueName returns a random UUID followed by the extension of original.
// Nothing else from original survives, including any directory part.
func UniqueName(original string) string {
	base := path.Base(strings.ReplaceAll(original, "\\", "/"))
	ext := path.Ext(base)
	// ".jpg" is a hidden file without an extension, and "a." ends in a bare dot.
	if ext == base || ext == "." {
		ext = ""
	}
	return uuid.NewString() + ext
}

// AvailableName draws unique names until one is absent from store. Collisions
// are astronomically unlikely; the attempt bound only guarantees termination.
// Errors from Exists are returned immediately and never retried.
func AvailableName(ctx context.Context, store existenceChecker, original string) (string, error) {
	const op = "storage.AvailableName"

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := UniqueName(original)
		exists, err := store.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if !exists {
			return name, nil
		}
	}
	return "", fmt.Errorf("%s: %w after %d attempts", op, ErrNameExhausted, maxNameAttempts)
}
