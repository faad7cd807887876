package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

var ErrKeyNotFound = errors.New("key not found")

// Entry is one stored record. Value is the record as a JSON object.
type Entry struct {
	Key   string
	Value json.RawMessage
}

type Store interface {
	// WriteBatch stores all entries atomically and durably.
	WriteBatch(ctx context.Context, entries []Entry) error
	Get(ctx context.Context, key string) (json.RawMessage, error)
	// Scan returns entries of action with timestamps in [start, end], in key order.
	Scan(ctx context.Context, action string, start, end time.Time) ([]Entry, error)
	Close() error
}

type pebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) a store at path. opts may be nil.
func NewPebbleStore(path string, opts *pebble.Options) (Store, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to open key-value store")
		return nil, fmt.Errorf("failed to open key-value store at %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Key-value store opened")
	return &pebbleStore{db: db}, nil
}

func (s *pebbleStore) WriteBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Set([]byte(e.Key), e.Value, nil); err != nil {
			return fmt.Errorf("failed to add key %s to batch: %w", e.Key, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		log.Error().Err(err).Int("count", len(entries)).Msg("Failed to commit key-value batch")
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	log.Debug().Int("count", len(entries)).Msg("Committed key-value batch")
	return nil
}

func (s *pebbleStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	value, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *pebbleStore) Scan(ctx context.Context, action string, start, end time.Time) ([]Entry, error) {
	lower, upper := KeyRange(action, start, end)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())
		entries = append(entries, Entry{Key: string(iter.Key()), Value: value})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("iteration failed: %w", err)
	}
	return entries, nil
}

func (s *pebbleStore) Close() error {
	log.Info().Msg("Closing key-value store...")
	return s.db.Close()
}
