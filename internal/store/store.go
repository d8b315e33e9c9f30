// SPDX-License-Identifier: MIT

// Package store provides the persistent cache tier backed by Badger and the
// TwoTier facade that combines it with the in-memory tier.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

// NegativeMarker is the persisted sentinel for "looked it up, nothing there".
// It shares the keyspace with real payloads, so readers must check it before
// decoding.
const NegativeMarker = "__NOT_AVAILABLE__"

// IsNegative reports whether a stored value is the negative sentinel.
func IsNegative(v interface{}) bool {
	s, ok := v.(string)
	return ok && s == NegativeMarker
}

// Store is a Badger-backed key-value store with JSON values. Entries without
// a TTL live until overwritten.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open creates the directory if needed and opens the Badger database in it.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("store", filepath.Base(path)).Logger(),
	}, nil
}

// Get returns the decoded value for key. The second return is false when the
// key is absent or its TTL has expired.
func (s *Store) Get(key string) (interface{}, bool, error) {
	var out interface{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return out, true, nil
}

// Set stores value under key. A ttl of zero means the entry never expires.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) error {
	buf, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if ttl > 0 {
			return txn.SetEntry(badger.NewEntry([]byte(key), buf).WithTTL(ttl))
		}
		return txn.Set([]byte(key), buf)
	})
}

// Maintain drives Badger's value-log garbage collection until ctx is done.
// Badger does not reclaim value-log space on its own; without this loop the
// cache directory grows without bound as entries expire.
func (s *Store) Maintain(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A single pass can leave more files eligible; keep rewriting
			// until Badger reports nothing left to collect.
			for {
				err := s.db.RunValueLogGC(0.5)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn().Err(err).Msg("value log gc failed")
				}
				break
			}
		}
	}
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
