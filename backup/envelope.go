// Package backup defines the backup envelope and the two restore policies,
// and drives the single-file cloud sync and auto-restore discovery on top of
// the remote client.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jurnalguru/internal/utils"
	"jurnalguru/store"
)

// FormatVersion is written into every new envelope. Readers accept any
// positive version.
const FormatVersion = 3

// ErrInvalidBackupFormat is returned when an envelope fails structural
// validation. Nothing has been written to the store when it is returned.
var ErrInvalidBackupFormat = errors.New("invalid backup format")

// Envelope is the serialized form of the whole local store.
type Envelope struct {
	Version       int                          `json:"version"`
	LastModified  string                       `json:"last_modified,omitempty"`
	Timestamp     string                       `json:"timestamp,omitempty"`
	DeviceInfo    string                       `json:"device_info,omitempty"`
	DeviceID      string                       `json:"device_id,omitempty"`
	SchemaVersion int                          `json:"schema_version,omitempty"`
	Tables        map[string][]json.RawMessage `json:"tables"`
}

// Time returns the envelope's timestamp under whichever key it was written.
func (e *Envelope) Time() time.Time {
	for _, s := range []string{e.LastModified, e.Timestamp} {
		if s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Records returns the number of records per collection.
func (e *Envelope) Records() map[string]int {
	out := make(map[string]int, len(e.Tables))
	for name, rows := range e.Tables {
		out[name] = len(rows)
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBackupFormat, fmt.Sprintf(format, args...))
}

// ParseEnvelope validates and decodes a backup. It accepts the nested
// "tables" form and the older flat form with one top-level key per
// collection. Tables for collections this build does not know are dropped.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return nil, invalid("not a JSON object")
	}

	env := &Envelope{}
	rawVersion, ok := top["version"]
	if !ok {
		return nil, invalid("missing version")
	}
	var version float64
	if err := json.Unmarshal(rawVersion, &version); err != nil || version < 1 || version != float64(int(version)) {
		return nil, invalid("version must be a positive integer")
	}
	env.Version = int(version)

	for key, dst := range map[string]*string{"last_modified": &env.LastModified, "timestamp": &env.Timestamp} {
		if raw, ok := top[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return nil, invalid("%s must be a string", key)
			}
		}
	}
	if env.LastModified == "" && env.Timestamp == "" {
		return nil, invalid("missing last_modified/timestamp")
	}

	for key, dst := range map[string]*string{"device_info": &env.DeviceInfo, "device_id": &env.DeviceID} {
		if raw, ok := top[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return nil, invalid("%s must be a string", key)
			}
		}
	}
	if raw, ok := top["schema_version"]; ok {
		if err := json.Unmarshal(raw, &env.SchemaVersion); err != nil {
			return nil, invalid("schema_version must be an integer")
		}
	}

	tables := make(map[string]json.RawMessage)
	if raw, ok := top["tables"]; ok {
		if err := json.Unmarshal(raw, &tables); err != nil || tables == nil {
			return nil, invalid("tables must be an object")
		}
	} else {
		for _, name := range store.Collections() {
			if raw, ok := top[name]; ok {
				tables[name] = raw
			}
		}
		if len(tables) == 0 {
			return nil, invalid("missing tables")
		}
	}

	env.Tables = make(map[string][]json.RawMessage, len(tables))
	for name, raw := range tables {
		if _, known := store.Spec(name); !known {
			utils.Debugf("backup: ignoring unknown table %q", name)
			continue
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, invalid("table %s must be an array", name)
		}
		for i, row := range rows {
			if !isObject(row) {
				return nil, invalid("table %s record %d is not an object", name, i)
			}
		}
		env.Tables[name] = rows
	}

	return env, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// PartialReadError records a collection that could not be read during
// export and was written as an empty list instead.
type PartialReadError struct {
	Collection string
	Err        error
}

func (e *PartialReadError) Error() string {
	return fmt.Sprintf("failed to read collection %s: %v", e.Collection, e.Err)
}

func (e *PartialReadError) Unwrap() error {
	return e.Err
}

// ExportOptions stamps identifying metadata into an envelope.
type ExportOptions struct {
	DeviceID   string
	DeviceInfo string
	Now        func() time.Time
}

// Export snapshots every collection of s into an envelope, inside one read
// transaction. A collection that fails to read is exported as an empty list
// and reported in the returned slice.
func Export(ctx context.Context, s *store.Store, opts ExportOptions) (*Envelope, []*PartialReadError, error) {
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		env      *Envelope
		partials []*PartialReadError
	)
	// The store has a single connection: only tx may be used in here.
	err = s.Tx(ctx, func(tx *store.Tx) error {
		read := func(ctx context.Context, name string) ([]json.RawMessage, error) {
			return tx.Collection(name).All(ctx)
		}
		env, partials = exportTables(ctx, store.Collections(), read, opts)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	env.SchemaVersion = version
	return env, partials, nil
}

type tableReader func(ctx context.Context, name string) ([]json.RawMessage, error)

func exportTables(ctx context.Context, names []string, read tableReader, opts ExportOptions) (*Envelope, []*PartialReadError) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	env := &Envelope{
		Version:      FormatVersion,
		LastModified: now().UTC().Format(time.RFC3339Nano),
		DeviceID:     opts.DeviceID,
		DeviceInfo:   opts.DeviceInfo,
		Tables:       make(map[string][]json.RawMessage, len(names)),
	}

	var partials []*PartialReadError
	for _, name := range names {
		rows, err := read(ctx, name)
		if err != nil {
			perr := &PartialReadError{Collection: name, Err: err}
			utils.Warnf("backup: %v; exporting it as empty", perr)
			partials = append(partials, perr)
			rows = []json.RawMessage{}
		}
		env.Tables[name] = rows
	}
	return env, partials
}
