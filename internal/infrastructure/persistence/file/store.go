// Package file implements the progress store on a single JSON document with
// atomic replace semantics. This is the default backend: the whole table is
// serialized and written to a temp file which is fsynced and renamed over the
// previous version, so a crash mid-write can never corrupt existing data.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/smc-quest/smc-quest-core/internal/domain/player"
	"github.com/smc-quest/smc-quest-core/internal/domain/shared"
)

// Store keeps the full progress table in memory and flushes it to disk after
// every committed mutation. Locking is per user id: operations on the same
// key serialize, operations on different keys run in parallel. The table-wide
// RWMutex is held only around map access and serialization.
type Store struct {
	path string
	log  *slog.Logger

	mu    sync.RWMutex
	table map[int64]*player.State

	lockMu   sync.Mutex
	keyLocks map[int64]*sync.Mutex
}

// New creates a file store persisting to path. Call Load before use.
func New(path string, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		path:     path,
		log:      log,
		table:    make(map[int64]*player.State),
		keyLocks: make(map[int64]*sync.Mutex),
	}
}

// keyLock returns the mutex serializing operations for one user id.
func (s *Store) keyLock(userID int64) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	l, ok := s.keyLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.keyLocks[userID] = l
	}
	return l
}

// GetOrCreate returns a copy of the player record, lazily creating a
// defaulted one on first reference. A non-empty name refreshes the display
// name of an existing record.
func (s *Store) GetOrCreate(ctx context.Context, userID int64, name string) (*player.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lock := s.keyLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	state, ok := s.table[userID]
	dirty := !ok
	if !ok {
		state = player.NewState(userID, name)
		s.table[userID] = state
	} else if name != "" && state.Name != name {
		state.Name = name
		dirty = true
	}
	clone := state.Clone()
	s.mu.Unlock()

	if dirty {
		if err := s.persistLocked(ctx); err != nil {
			// The record stays in memory; flushing will be retried
			// on the next mutation.
			s.log.Warn("persist after create failed", "user_id", userID, "error", err)
		}
	}
	return clone, nil
}

// View runs fn on a snapshot of the record under the key lock.
func (s *Store) View(ctx context.Context, userID int64, fn player.ViewFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.keyLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	state, ok := s.table[userID]
	var clone *player.State
	if ok {
		clone = state.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return shared.ErrPlayerNotFound
	}
	return fn(clone)
}

// Mutate is the atomic read-mutate-persist unit. fn runs on a copy of the
// record; an fn error aborts the operation with no mutation. A persistence
// failure is returned to the caller but the in-memory mutation is retained.
func (s *Store) Mutate(ctx context.Context, userID int64, fn player.MutateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := s.keyLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	state, ok := s.table[userID]
	if !ok {
		state = player.NewState(userID, "")
	}
	clone := state.Clone()
	s.mu.RUnlock()

	if err := fn(clone); err != nil {
		return err
	}

	s.mu.Lock()
	s.table[userID] = clone
	s.mu.Unlock()

	return s.persistLocked(ctx)
}

// All returns a snapshot of every record, ordered by user id.
func (s *Store) All(ctx context.Context) ([]*player.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	states := make([]*player.State, 0, len(s.table))
	for _, state := range s.table {
		states = append(states, state.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool { return states[i].UserID < states[j].UserID })
	return states, nil
}

// Load reads the table from disk. A missing or corrupt file is not fatal:
// the store starts from an empty table and logs a warning. Records from
// older file versions are migrated once, here, not patched on every read.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Info("progress file absent, starting empty", "path", s.path)
			return nil
		}
		s.log.Warn("progress file unreadable, starting empty", "path", s.path, "error", err)
		return nil
	}

	var raw map[string]*player.State
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("progress file corrupt, starting empty", "path", s.path, "error", err)
		return nil
	}

	table := make(map[int64]*player.State, len(raw))
	for key, state := range raw {
		userID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || state == nil {
			s.log.Warn("skipping malformed progress record", "key", key)
			continue
		}
		state.Migrate(userID)
		table[userID] = state
	}

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()

	s.log.Info("progress loaded", "path", s.path, "players", len(table))
	return nil
}

// Persist flushes the whole table to disk atomically.
func (s *Store) Persist(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.persistLocked(ctx)
}

// persistLocked serializes the table and atomically replaces the file:
// write to a temp file in the same directory, fsync, rename.
func (s *Store) persistLocked(_ context.Context) error {
	s.mu.RLock()
	raw := make(map[string]*player.State, len(s.table))
	for userID, state := range s.table {
		raw[strconv.FormatInt(userID, 10)] = state
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	s.mu.RUnlock()

	if err != nil {
		return shared.WrapError("store", "Persist", shared.ErrPersistence, "marshal progress table", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".progress-*.tmp")
	if err != nil {
		return shared.WrapError("store", "Persist", shared.ErrPersistence, "create temp file", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return shared.WrapError("store", "Persist", shared.ErrPersistence, "write temp file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return shared.WrapError("store", "Persist", shared.ErrPersistence, "sync temp file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return shared.WrapError("store", "Persist", shared.ErrPersistence, "close temp file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return shared.WrapError("store", "Persist", shared.ErrPersistence,
			fmt.Sprintf("replace %s", s.path), err)
	}
	return nil
}
