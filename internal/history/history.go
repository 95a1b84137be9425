// Package history keeps the bounded command history and persists it
// across sessions with SoloDB.
package history

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	solodb "github.com/phillarmonic/SoloDB"
)

const (
	// DefaultLimit bounds the number of remembered commands
	DefaultLimit = 1000

	historyKey = "history"

	// Entries never expire on their own; the ring bound is the limit.
	retention = 10 * 365 * 24 * time.Hour
)

// Store holds the in-memory history ring and its backing database
type Store struct {
	entries  []string
	limit    int
	db       *solodb.DB
	disabled bool
}

// Open loads the history database from the dsh state directory. With
// disabled set (or when the home directory is unavailable) the store
// works purely in memory.
func Open(limit int, disabled bool) (*Store, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s := &Store{limit: limit}

	if disabled {
		s.disabled = true
		return s, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		s.disabled = true
		return s, nil
	}

	dshDir := filepath.Join(homeDir, ".dsh")
	if err := os.MkdirAll(dshDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .dsh directory: %w", err)
	}

	db, err := solodb.Open(solodb.Options{
		Path:       filepath.Join(dshDir, "history.solo"),
		Durability: solodb.SyncBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	s.db = db

	s.load()
	return s, nil
}

// load reads the persisted history blob into the ring
func (s *Store) load() {
	rc, _, _, err := s.db.GetBlob(historyKey)
	if err != nil {
		return // missing or expired: start empty
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		if line != "" {
			s.entries = append(s.entries, line)
		}
	}
	if len(s.entries) > s.limit {
		s.entries = s.entries[len(s.entries)-s.limit:]
	}
}

// Add appends a command line to the history. Empty lines and immediate
// repeats are dropped; the oldest entry falls off past the limit.
func (s *Store) Add(line string) {
	if line == "" {
		return
	}
	if n := len(s.entries); n > 0 && s.entries[n-1] == line {
		return
	}
	s.entries = append(s.entries, line)
	if len(s.entries) > s.limit {
		s.entries = s.entries[1:]
	}
}

// Entries returns the history oldest-first
func (s *Store) Entries() []string {
	out := make([]string, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry at index (0 is oldest), or ""
func (s *Store) Get(index int) string {
	if index < 0 || index >= len(s.entries) {
		return ""
	}
	return s.entries[index]
}

// Count returns the number of remembered commands
func (s *Store) Count() int {
	return len(s.entries)
}

// Clear forgets every entry, in memory and on disk
func (s *Store) Clear() {
	s.entries = nil
	if s.db != nil {
		_ = s.db.Delete(historyKey)
	}
}

// Save writes the ring back to the database
func (s *Store) Save() error {
	if s.disabled || s.db == nil {
		return nil
	}

	content := strings.Join(s.entries, "\n")
	reader := strings.NewReader(content)
	if err := s.db.SetBlob(historyKey, reader, int64(len(content)), time.Now().Add(retention)); err != nil {
		return fmt.Errorf("history write error: %w", err)
	}
	return nil
}

// Close saves and closes the backing database
func (s *Store) Close() error {
	if err := s.Save(); err != nil {
		return err
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
