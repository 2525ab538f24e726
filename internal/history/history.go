// SPDX-License-Identifier: MPL-2.0

// Package history persists the lines entered at the dispatch loop in a bbolt
// database. Entries are keyed by a monotonically increasing sequence number.
package history

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketCmd = "cmd"

	// openTimeout bounds how long Open waits for another process holding the
	// database lock.
	openTimeout = time.Second
)

type (
	// Entry is one recorded line.
	Entry struct {
		Seq  int    `json:"seq" yaml:"seq" toml:"seq"`
		Text string `json:"text" yaml:"text" toml:"text"`
	}

	// Store is a bbolt-backed history store. It is safe for concurrent use.
	Store struct {
		db   *bolt.DB
		path string
	}
)

// Open opens or creates the history database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists([]byte(bucketCmd))
		return bucketErr
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Add records line and returns its sequence number.
func (s *Store) Add(line string) (int, error) {
	var seq uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketCmd))
		var err error
		seq, err = b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(marshalSeq(seq), []byte(line))
	})
	return int(seq), err
}

// Last returns up to n most recent entries, oldest first. n <= 0 returns
// every entry.
func (s *Store) Last(n int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketCmd)).Cursor()
		for k, v := c.Last(); k != nil && (n <= 0 || len(entries) < n); k, v = c.Prev() {
			entries = append(entries, Entry{Seq: int(unmarshalSeq(k)), Text: string(v)})
		}
		return nil
	})
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func unmarshalSeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key)
}
