package leveling

import (
	"context"
	"errors"
	"fmt"

	"guildkeeper/internal/modules/audit"
)

var ErrInvalidAmount = errors.New("leveling: invalid amount")

// SetTotalXP overwrites a user's total and derives level and in-level XP
// from the curve.
func (s *Service) SetTotalXP(ctx context.Context, guildID, userID string, total int64) (Record, error) {
	if total < 0 {
		return Record{}, ErrInvalidAmount
	}
	lookup, err := GetOrCreate(ctx, s.store, guildID, userID)
	if err != nil {
		return Record{}, fmt.Errorf("load level: %w", err)
	}
	rec := lookup.Record
	rec.TotalXP = total
	rec.Level, rec.CurrentLevelXP = s.curve.Split(total)
	if err := s.store.SetUserLevel(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("save level: %w", err)
	}
	s.journalf(ctx, guildID, userID, audit.EventXPSet, "total_xp=%d level=%d", rec.TotalXP, rec.Level)
	return rec, nil
}

// SetLevel puts the user at the start of level, with zero XP inside it.
// Levels past the curve's effective maximum are rejected.
func (s *Service) SetLevel(ctx context.Context, guildID, userID string, level int) (Record, error) {
	if level < 1 || level > s.curve.EffectiveMaxLevel() {
		return Record{}, ErrInvalidAmount
	}
	return s.SetTotalXP(ctx, guildID, userID, s.curve.MinTotalXP(level))
}

// ResetUser deletes the user's row and cooldown, as if they never spoke.
func (s *Service) ResetUser(ctx context.Context, guildID, userID string) error {
	if err := s.store.DeleteUserLevel(ctx, guildID, userID); err != nil {
		return fmt.Errorf("delete level: %w", err)
	}
	if s.cooldown != nil {
		s.cooldown.Forget(userID, guildID)
	}
	s.journalf(ctx, guildID, userID, audit.EventXPReset, "row deleted")
	return nil
}

// GrantXP injects XP outside the message path. It bypasses the cooldown and
// does not count as a message, but runs the same level-up side effects.
func (s *Service) GrantXP(ctx context.Context, guildID, userID string, amount int64) (Award, error) {
	if amount <= 0 {
		return Award{}, ErrInvalidAmount
	}
	award, err := s.apply(ctx, guildID, userID, amount, s.clock.Now(), false)
	if err != nil {
		return Award{}, err
	}
	s.metrics.observeXP(award)
	s.journalf(ctx, guildID, userID, audit.EventXPGrant, "amount=%d total_xp=%d", amount, award.Record.TotalXP)
	if award.LeveledUp() {
		s.levelUp(ctx, nil, award)
	}
	return award, nil
}

// Rank reads a user's record without creating it.
func (s *Service) Rank(ctx context.Context, guildID, userID string) (Lookup, error) {
	return GetOrCreate(ctx, s.store, guildID, userID)
}

func (s *Service) journalf(ctx context.Context, guildID, userID, event, format string, args ...any) {
	if s.journal == nil {
		return
	}
	s.journal.Log(ctx, audit.LevelInfo, guildID, userID, event, fmt.Sprintf(format, args...))
}
