package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"elarocks/internal/encoder"
	"elarocks/internal/model"
	"elarocks/internal/schema"

	"github.com/rs/zerolog/log"
)

// IndexEntry links a stored key to its event action and time, for indexes
// kept outside the key-value store.
type IndexEntry struct {
	Action    string
	SavedTime time.Time
	Key       string
}

// KeyIndex receives one entry per stored record.
type KeyIndex interface {
	Record(ctx context.Context, entries []IndexEntry) error
}

// Loader bulk-loads tabular files into a Store.
type Loader struct {
	store Store
	index KeyIndex
}

// NewLoader creates a loader. index may be nil.
func NewLoader(store Store, index KeyIndex) *Loader {
	return &Loader{store: store, index: index}
}

// LoadFile stores every row of the tabular file at path and returns the
// number of distinct keys written. Rows are keyed by event_action and utc_time.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	table, err := encoder.DecodeFile(path)
	if err != nil {
		return 0, err
	}
	return l.LoadTable(ctx, table)
}

func (l *Loader) LoadTable(ctx context.Context, table *encoder.Table) (int, error) {
	actionCol := table.Column(schema.FieldEventAction)
	if actionCol < 0 {
		return 0, fmt.Errorf("tabular file has no %s column", schema.FieldEventAction)
	}
	timeCol := table.Column("utc_time")

	gen := NewKeyGenerator()
	entries := make([]Entry, 0, len(table.Rows))
	indexEntries := make([]IndexEntry, 0, len(table.Rows))
	positions := make(map[string]int, len(table.Rows))
	for _, row := range table.Rows {
		utcTime := ""
		if timeCol >= 0 {
			utcTime = row[timeCol]
		}
		action := row[actionCol]
		key, ts := gen.Next(action, utcTime)

		value, err := rowJSON(table.Header, row)
		if err != nil {
			return 0, fmt.Errorf("encoding row for key %s: %w", key, err)
		}
		// Keys repeat when a timestamp recurs after a different one; the
		// later row replaces the earlier, as the store would.
		if i, dup := positions[key]; dup {
			log.Warn().Str("key", key).Msg("Duplicate record key in tabular file, later row overwrites earlier")
			entries[i].Value = value
			indexEntries[i].SavedTime = ts
			continue
		}
		positions[key] = len(entries)
		entries = append(entries, Entry{Key: key, Value: value})
		indexEntries = append(indexEntries, IndexEntry{Action: action, SavedTime: ts, Key: key})
	}

	if err := l.store.WriteBatch(ctx, entries); err != nil {
		return 0, err
	}
	if l.index != nil && len(indexEntries) > 0 {
		if err := l.index.Record(ctx, indexEntries); err != nil {
			return 0, fmt.Errorf("records stored but key index update failed: %w", err)
		}
	}
	log.Info().Int("rows", len(table.Rows)).Int("keys", len(entries)).Msg("Loaded tabular rows into key-value store")
	return len(entries), nil
}

// rowJSON renders a row as a JSON object in header order. Empty cells are null.
func rowJSON(header, row []string) (json.RawMessage, error) {
	fields := make([]model.Field, len(header))
	for i, name := range header {
		fields[i] = model.Field{Name: name, Value: row[i], Present: row[i] != ""}
	}
	return json.Marshal(model.NewRecord(fields))
}
