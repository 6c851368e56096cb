// Package store persists workout records and the current plan to flat text
// files. Every mutation rewrites the whole file.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/briangreenhill/fitplan/internal/observability"
)

// ErrNotLoaded is returned by writes while the last load of the backing file
// failed. Writing then would replace records that were never read.
var ErrNotLoaded = errors.New("records not loaded")

// Record is a value the store can order by time and find by equality.
type Record[T any] interface {
	Time() time.Time
	Equal(T) bool
}

// Codec maps records to and from single lines of the backing file.
type Codec[T any] interface {
	// Header is written as the first line and skipped on load.
	Header() string
	Encode(T) string
	Decode(line string) (T, error)
}

// RecordStore is an ordered, file-backed list of records. Callers only ever
// receive copies of the list.
type RecordStore[T Record[T]] struct {
	mu      sync.RWMutex
	fs      afero.Fs
	path    string
	name    string
	codec   Codec[T]
	log     zerolog.Logger
	records []T
	loadErr error
}

// Open creates a store over path and loads it. A missing file is an empty
// store. The returned store is usable even when the error is non-nil.
func Open[T Record[T]](fs afero.Fs, path string, codec Codec[T], log zerolog.Logger) (*RecordStore[T], error) {
	name := filepath.Base(path)
	s := &RecordStore[T]{
		fs:    fs,
		path:  path,
		name:  name,
		codec: codec,
		log:   log.With().Str("store", name).Logger(),
	}
	_, err := s.Load()
	return s, err
}

// Path returns the backing file.
func (s *RecordStore[T]) Path() string { return s.path }

// Load replaces the in-memory list with the backing file's contents. The
// first line is always skipped, blank lines are ignored and lines that fail
// to decode are logged and dropped. If the file cannot be read, writes are
// refused until the file loads again.
func (s *RecordStore[T]) Load() ([]T, error) {
	s.mu.Lock()
	err := s.load()
	s.mu.Unlock()
	return s.All(), err
}

// load must be called with mu held.
func (s *RecordStore[T]) load() error {
	var loaded []T
	err := readLines(s.fs, s.path, func(n int, line string) {
		if n == 1 || strings.TrimSpace(line) == "" {
			return
		}
		rec, err := s.codec.Decode(line)
		if err != nil {
			s.log.Warn().Err(err).Int("line", n).Str("content", line).Msg("skipping corrupt record")
			observability.RecordSkippedLine(s.name)
			return
		}
		loaded = append(loaded, rec)
	})
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	if err != nil {
		s.log.Error().Err(err).Msg("load records")
		err = fmt.Errorf("load %s: %w", s.path, err)
	}

	s.records = loaded
	s.loadErr = err
	s.log.Debug().Int("records", len(loaded)).Msg("loaded records")
	return err
}

// Save rewrites the backing file with records and adopts them as the
// in-memory list. On failure the in-memory list is left as it was.
func (s *RecordStore[T]) Save(records []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	if err := s.write(records); err != nil {
		return err
	}
	s.records = slices.Clone(records)
	return nil
}

// Add appends rec and rewrites the file. The record stays in memory even if
// the write fails.
func (s *RecordStore[T]) Add(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	return s.write(s.records)
}

// Remove drops the first record equal to rec and rewrites the file. The file
// is rewritten even when nothing matched.
func (s *RecordStore[T]) Remove(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writable(); err != nil {
		return err
	}
	if i := slices.IndexFunc(s.records, rec.Equal); i >= 0 {
		s.records = slices.Delete(s.records, i, i+1)
	}
	return s.write(s.records)
}

// All returns a copy of every record in insertion order.
func (s *RecordStore[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records in memory.
func (s *RecordStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ByDateRange returns records with start <= time <= end in stored order.
func (s *RecordStore[T]) ByDateRange(start, end time.Time) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []T{}
	for _, r := range s.records {
		t := r.Time()
		if !t.Before(start) && !t.After(end) {
			out = append(out, r)
		}
	}
	return out
}

// Recent returns up to n records, newest first.
func (s *RecordStore[T]) Recent(n int) []T {
	if n <= 0 {
		return []T{}
	}
	sorted := s.All()
	slices.SortStableFunc(sorted, func(a, b T) int {
		return b.Time().Compare(a.Time())
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// writable retries a failed load before any write. It must be called with
// mu held.
func (s *RecordStore[T]) writable() error {
	if s.loadErr == nil {
		return nil
	}
	if err := s.load(); err != nil {
		return fmt.Errorf("save %s: %w: %v", s.path, ErrNotLoaded, err)
	}
	return nil
}

// write must be called with mu held.
func (s *RecordStore[T]) write(records []T) error {
	var b strings.Builder
	b.WriteString(s.codec.Header())
	b.WriteByte('\n')
	for _, r := range records {
		b.WriteString(s.codec.Encode(r))
		b.WriteByte('\n')
	}

	err := writeFile(s.fs, s.path, []byte(b.String()))
	observability.RecordStoreSave(s.name, err)
	if err != nil {
		s.log.Error().Err(err).Msg("save records")
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	s.log.Debug().Int("records", len(records)).Msg("saved records")
	return nil
}
