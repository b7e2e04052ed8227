package leveling

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type CooldownConfig struct {
	Window        time.Duration
	SweepInterval time.Duration
	MaxEntries    int
}

// CooldownTracker remembers the last award per (user, guild). It only bounds
// how often XP is granted; dropping an entry early costs at most one extra
// award.
type CooldownTracker struct {
	mu        sync.Mutex
	cfg       CooldownConfig
	clock     Clock
	entries   map[string]time.Time
	lastSweep time.Time
}

func NewCooldownTracker(cfg CooldownConfig) *CooldownTracker {
	return &CooldownTracker{
		cfg:       cfg,
		clock:     realClock{},
		entries:   make(map[string]time.Time),
		lastSweep: time.Now(),
	}
}

func (t *CooldownTracker) WithClock(clock Clock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clock = clock
	t.lastSweep = clock.Now()
}

func cooldownKey(userID, guildID string) string {
	return userID + ":" + guildID
}

func (t *CooldownTracker) IsOnCooldown(userID, guildID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeLocked(cooldownKey(userID, guildID), t.clock.Now())
}

func (t *CooldownTracker) RecordAward(userID, guildID string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[cooldownKey(userID, guildID)] = now
	t.maybeSweepLocked(now)
}

// Allow checks and records in one step, so concurrent messages from the same
// user cannot both pass.
func (t *CooldownTracker) Allow(userID, guildID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := cooldownKey(userID, guildID)
	if t.activeLocked(key, now) {
		return false
	}
	t.entries[key] = now
	t.maybeSweepLocked(now)
	return true
}

func (t *CooldownTracker) Forget(userID, guildID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, cooldownKey(userID, guildID))
}

// Sweep drops expired entries and returns how many were removed.
func (t *CooldownTracker) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sweepLocked(now)
}

func (t *CooldownTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *CooldownTracker) activeLocked(key string, now time.Time) bool {
	if t.cfg.Window <= 0 {
		return false
	}
	last, ok := t.entries[key]
	if !ok {
		return false
	}
	return now.Sub(last) < t.cfg.Window
}

func (t *CooldownTracker) maybeSweepLocked(now time.Time) {
	overCap := t.cfg.MaxEntries > 0 && len(t.entries) > t.cfg.MaxEntries
	due := t.cfg.SweepInterval > 0 && now.Sub(t.lastSweep) >= t.cfg.SweepInterval
	if overCap || due {
		t.sweepLocked(now)
	}
}

func (t *CooldownTracker) sweepLocked(now time.Time) int {
	t.lastSweep = now
	removed := 0
	for key, last := range t.entries {
		if now.Sub(last) >= t.cfg.Window {
			delete(t.entries, key)
			removed++
		}
	}
	if t.cfg.MaxEntries <= 0 || len(t.entries) <= t.cfg.MaxEntries {
		return removed
	}

	// Still over the cap with only live entries: evict the oldest.
	type aged struct {
		key  string
		last time.Time
	}
	live := make([]aged, 0, len(t.entries))
	for key, last := range t.entries {
		live = append(live, aged{key: key, last: last})
	}
	sort.Slice(live, func(i, j int) bool {
		return live[i].last.Before(live[j].last)
	})
	for _, item := range live[:len(live)-t.cfg.MaxEntries] {
		delete(t.entries, item.key)
		removed++
	}
	return removed
}
