package analytics

import (
	"context"
	"sort"
	"time"

	"guildkeeper/internal/leveling"
	"guildkeeper/internal/modules/audit"
)

type LevelSource interface {
	AllLevels(ctx context.Context, guildID string) ([]leveling.Record, error)
}

type AuditSource interface {
	ListAuditLogs(ctx context.Context, guildID string, since time.Time) ([]audit.Entry, error)
}

type Service struct {
	levels LevelSource
	logs   AuditSource
}

func New(levels LevelSource, logs AuditSource) *Service {
	return &Service{levels: levels, logs: logs}
}

type Standing struct {
	Position int
	Record   leveling.Record
}

// Leaderboard returns up to limit standings ordered by total XP, ties broken
// by user ID so positions are stable across backends.
func (s *Service) Leaderboard(ctx context.Context, guildID string, limit int) ([]Standing, error) {
	records, err := s.sorted(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	standings := make([]Standing, 0, len(records))
	for i, rec := range records {
		standings = append(standings, Standing{Position: i + 1, Record: rec})
	}
	return standings, nil
}

// Position returns the 1-based rank of userID and the number of ranked users.
// Position is 0 when the user has no row.
func (s *Service) Position(ctx context.Context, guildID, userID string) (int, int, error) {
	records, err := s.sorted(ctx, guildID)
	if err != nil {
		return 0, 0, err
	}
	for i, rec := range records {
		if rec.UserID == userID {
			return i + 1, len(records), nil
		}
	}
	return 0, len(records), nil
}

func (s *Service) sorted(ctx context.Context, guildID string) ([]leveling.Record, error) {
	records, err := s.levels.AllLevels(ctx, guildID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].TotalXP != records[j].TotalXP {
			return records[i].TotalXP > records[j].TotalXP
		}
		return records[i].UserID < records[j].UserID
	})
	return records, nil
}

type Report struct {
	Total    int
	ByLevel  map[string]int
	ByEvent  map[string]int
	LevelUps int
	Users    int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.logs.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	users := make(map[string]struct{})
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
		if log.Event == audit.EventLevelUp {
			report.LevelUps++
		}
		if log.UserID != "" {
			users[log.UserID] = struct{}{}
		}
	}
	report.Users = len(users)
	return report, nil
}
