// Package jsonstore keeps leveling rows in a single JSON document on disk.
// Writes land in memory immediately and are flushed to the file once per
// flush delay, so a burst of awards costs one file write.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"guildkeeper/internal/leveling"

	"go.uber.org/zap"
)

type row struct {
	CurrentLevelXP int64     `json:"current_level_xp"`
	Level          int       `json:"level"`
	TotalXP        int64     `json:"total_xp"`
	MessageCount   int64     `json:"message_count"`
	LastAwardAt    time.Time `json:"last_award_at"`
}

type document struct {
	Version int                       `json:"version"`
	Levels  map[string]map[string]row `json:"levels"`
}

type Store struct {
	mu     sync.Mutex
	path   string
	delay  time.Duration
	logger *zap.Logger
	doc    document
	dirty  bool
	timer  *time.Timer
	closed bool
}

// Open loads path if it exists. A missing file starts an empty store.
func Open(path string, delay time.Duration, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:   path,
		delay:  delay,
		logger: logger,
		doc:    document{Version: 1, Levels: make(map[string]map[string]row)},
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if s.doc.Levels == nil {
		s.doc.Levels = make(map[string]map[string]row)
	}
	return s, nil
}

func (s *Store) GetUserLevel(_ context.Context, guildID, userID string) (*leveling.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.doc.Levels[guildID][userID]
	if !ok {
		return nil, nil
	}
	rec := toRecord(guildID, userID, r)
	return &rec, nil
}

func (s *Store) SetUserLevel(_ context.Context, rec leveling.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("jsonstore: closed")
	}
	guild := s.doc.Levels[rec.GuildID]
	if guild == nil {
		guild = make(map[string]row)
		s.doc.Levels[rec.GuildID] = guild
	}
	guild[rec.UserID] = row{
		CurrentLevelXP: rec.CurrentLevelXP,
		Level:          rec.Level,
		TotalXP:        rec.TotalXP,
		MessageCount:   rec.MessageCount,
		LastAwardAt:    rec.LastAwardAt,
	}
	return s.markDirtyLocked()
}

func (s *Store) DeleteUserLevel(_ context.Context, guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("jsonstore: closed")
	}
	guild := s.doc.Levels[guildID]
	if _, ok := guild[userID]; !ok {
		return nil
	}
	delete(guild, userID)
	if len(guild) == 0 {
		delete(s.doc.Levels, guildID)
	}
	return s.markDirtyLocked()
}

func (s *Store) AllLevels(_ context.Context, guildID string) ([]leveling.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guild := s.doc.Levels[guildID]
	records := make([]leveling.Record, 0, len(guild))
	for userID, r := range guild {
		records = append(records, toRecord(guildID, userID, r))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].TotalXP != records[j].TotalXP {
			return records[i].TotalXP > records[j].TotalXP
		}
		return records[i].UserID < records[j].UserID
	})
	return records, nil
}

// Flush writes pending changes now.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes and rejects further writes.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.closed = true
	return s.flushLocked()
}

// markDirtyLocked schedules a debounced flush. With no delay it flushes
// synchronously and returns the write error to the caller.
func (s *Store) markDirtyLocked() error {
	s.dirty = true
	if s.delay <= 0 {
		if err := s.flushLocked(); err != nil {
			return fmt.Errorf("flush %s: %w", s.path, err)
		}
		return nil
	}
	if s.timer != nil {
		return nil
	}
	s.timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.timer = nil
		if err := s.flushLocked(); err != nil {
			s.logger.Warn("json store flush failed", zap.String("path", s.path), zap.Error(err))
		}
	})
	return nil
}

func (s *Store) flushLocked() error {
	if !s.dirty {
		return nil
	}
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func toRecord(guildID, userID string, r row) leveling.Record {
	return leveling.Record{
		GuildID:        guildID,
		UserID:         userID,
		CurrentLevelXP: r.CurrentLevelXP,
		Level:          r.Level,
		TotalXP:        r.TotalXP,
		MessageCount:   r.MessageCount,
		LastAwardAt:    r.LastAwardAt,
	}
}
