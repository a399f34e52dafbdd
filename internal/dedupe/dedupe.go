// Package dedupe tracks the set of groups already joined across runs.
// The relational store is authoritative; the JSON snapshot on disk is
// a cache that survives even when the store is rebuilt, and vice versa
// the store covers for a lost snapshot. The loaded set is the union of
// both sources.
package dedupe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/jobscout/telegram-job-crawler/internal/store"
)

// Set is the in-memory joined-groups set with JSON persistence.
type Set struct {
	path string
	ids  map[string]struct{}
	log  *zap.Logger
}

// Load builds the set from the snapshot file and the ledger's join
// records. A missing or unparseable snapshot degrades to the ledger
// contents alone.
func Load(ctx context.Context, path string, ledger store.Provider, log *zap.Logger) (*Set, error) {
	s := &Set{
		path: path,
		ids:  make(map[string]struct{}),
		log:  log,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// First run, or snapshot lost; the ledger covers it.
	case err != nil:
		log.Warn("dedupe snapshot unreadable, continuing with ledger only",
			zap.String("path", path), zap.Error(err))
	default:
		var ids []string
		if jsonErr := json.Unmarshal(data, &ids); jsonErr != nil {
			log.Warn("dedupe snapshot malformed, continuing with ledger only",
				zap.String("path", path), zap.Error(jsonErr))
		} else {
			for _, id := range ids {
				s.ids[id] = struct{}{}
			}
		}
	}

	links, err := ledger.JoinedLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load joined links: %w", err)
	}
	for link := range links {
		s.ids[link] = struct{}{}
	}
	return s, nil
}

// Contains reports whether id is already joined.
func (s *Set) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add marks id as joined.
func (s *Set) Add(id string) {
	s.ids[id] = struct{}{}
}

// Len returns the number of joined groups.
func (s *Set) Len() int {
	return len(s.ids)
}

// IDs returns the joined group identifiers in sorted order.
func (s *Set) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Persist writes the snapshot atomically. Failures surface to the
// caller: losing the joined set risks re-joining past the daily cap.
func (s *Set) Persist() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &store.Error{Op: "persist dedupe", Err: err}
		}
	}
	data, err := json.MarshalIndent(s.IDs(), "", "  ")
	if err != nil {
		return &store.Error{Op: "persist dedupe", Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &store.Error{Op: "persist dedupe", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &store.Error{Op: "persist dedupe", Err: err}
	}
	return nil
}
