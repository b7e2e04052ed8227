package leveling

import (
	"context"
	"time"
)

// Record is the persisted leveling state of one user in one guild.
// TotalXP == MinTotalXP(Level) + CurrentLevelXP for the curve that wrote it.
type Record struct {
	GuildID        string
	UserID         string
	CurrentLevelXP int64
	Level          int
	TotalXP        int64
	MessageCount   int64
	LastAwardAt    time.Time
}

func NewRecord(guildID, userID string) Record {
	return Record{GuildID: guildID, UserID: userID, Level: 1}
}

func (r Record) valid() bool {
	return r.Level >= 1 && r.CurrentLevelXP >= 0 && r.TotalXP >= 0 && r.MessageCount >= 0
}

// Store is the persistence adapter the leveling core consumes. GetUserLevel
// returns nil, nil for a user that has no row.
type Store interface {
	GetUserLevel(ctx context.Context, guildID, userID string) (*Record, error)
	SetUserLevel(ctx context.Context, record Record) error
	DeleteUserLevel(ctx context.Context, guildID, userID string) error
	AllLevels(ctx context.Context, guildID string) ([]Record, error)
}

type LookupStatus int

const (
	Existing LookupStatus = iota
	New
)

func (s LookupStatus) String() string {
	if s == New {
		return "new"
	}
	return "existing"
}

type Lookup struct {
	Record Record
	Status LookupStatus
}

// GetOrCreate loads a user's record, or returns a fresh level 1 record tagged
// New when the row is absent or malformed. Nothing is written.
func GetOrCreate(ctx context.Context, store Store, guildID, userID string) (Lookup, error) {
	existing, err := store.GetUserLevel(ctx, guildID, userID)
	if err != nil {
		return Lookup{}, err
	}
	if existing == nil || !existing.valid() {
		return Lookup{Record: NewRecord(guildID, userID), Status: New}, nil
	}
	rec := *existing
	rec.GuildID = guildID
	rec.UserID = userID
	return Lookup{Record: rec, Status: Existing}, nil
}
