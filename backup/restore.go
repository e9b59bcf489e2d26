package backup

import (
	"context"
	"fmt"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// RestoreMode selects how an envelope is applied to the store.
type RestoreMode int

const (
	// Replace clears every collection and inserts the envelope's records:
	// afterwards the store equals the snapshot.
	Replace RestoreMode = iota
	// Merge upserts the envelope's records by key and deletes nothing.
	Merge
)

func (m RestoreMode) String() string {
	if m == Merge {
		return "merge"
	}
	return "replace"
}

// Restore applies env to s in a single transaction: on any failure nothing
// is changed. Settings named in keep are carried over from the current
// store, so a device keeps its own identity after a restore.
func Restore(ctx context.Context, s *store.Store, env *Envelope, mode RestoreMode, keep ...string) error {
	if env == nil || env.Tables == nil {
		return invalid("missing tables")
	}

	return utils.LogOperationf("restore (%s)", func() error {
		return s.Tx(ctx, func(tx *store.Tx) error {
			kept := make([]store.Setting, 0, len(keep))
			for _, key := range keep {
				setting, err := store.Fetch[store.Setting](ctx, tx.Collection(store.Settings), key)
				if err == nil {
					kept = append(kept, setting)
				}
			}

			if mode == Replace {
				for _, name := range store.Collections() {
					if err := tx.Collection(name).Clear(ctx); err != nil {
						return err
					}
				}
			}

			for _, name := range store.Collections() {
				rows, ok := env.Tables[name]
				if !ok || len(rows) == 0 {
					continue
				}
				c := tx.Collection(name)
				var err error
				if mode == Replace {
					err = c.BulkAdd(ctx, rows)
				} else {
					err = c.BulkPut(ctx, rows)
				}
				if err != nil {
					return fmt.Errorf("failed to restore %s: %w", name, err)
				}
			}

			for _, setting := range kept {
				if _, err := store.Save(ctx, tx.Collection(store.Settings), setting); err != nil {
					return err
				}
			}
			return nil
		})
	}, mode)
}
