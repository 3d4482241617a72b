package storage

import (
	"context"
	"errors"
	"log/slog"
)

// Batch records every object written during one composite write so the
// uploads can be undone when the surrounding database work fails.
type Batch struct {
	store  ObjectStore
	logger *slog.Logger
	keys   []string
}

// NewBatch starts an empty batch against store.
func NewBatch(store ObjectStore, logger *slog.Logger) *Batch {
	return &Batch{store: store, logger: logger}
}

// Put picks an available name derived from original and saves content under
// it. The name is recorded before the write so a partial upload is also
// cleaned up by Rollback.
func (b *Batch) Put(ctx context.Context, original string, content []byte) (string, error) {
	name, err := b.store.AvailableName(ctx, original)
	if err != nil {
		return "", err
	}
	b.keys = append(b.keys, name)
	if _, err := b.store.Save(ctx, name, content); err != nil {
		return "", err
	}
	return name, nil
}

// Keys lists the recorded object names in write order.
func (b *Batch) Keys() []string {
	return append([]string(nil), b.keys...)
}

// Rollback deletes every recorded object. It keeps going past failures and
// returns them joined.
func (b *Batch) Rollback(ctx context.Context) error {
	err := Purge(ctx, b.store, b.logger, b.keys)
	b.keys = nil
	return err
}

// Purge deletes keys one by one, logging each failure. The caller's
// cancellation is ignored so cleanup still runs after a client disconnects.
func Purge(ctx context.Context, store ObjectStore, logger *slog.Logger, keys []string) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			cleanupDeletesTotal.WithLabelValues("error").Inc()
			logger.ErrorContext(ctx, "failed to delete orphaned object",
				slog.String("key", key), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		cleanupDeletesTotal.WithLabelValues("success").Inc()
	}
	return errors.Join(errs...)
}
