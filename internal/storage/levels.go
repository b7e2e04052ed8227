package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"guildkeeper/internal/leveling"
)

func (s *Store) GetUserLevel(ctx context.Context, guildID, userID string) (*leveling.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT current_level_xp, level, total_xp, message_count, last_award_at
		FROM user_levels
		WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)

	rec := leveling.Record{GuildID: guildID, UserID: userID}
	var lastAward int64
	err := row.Scan(&rec.CurrentLevelXP, &rec.Level, &rec.TotalXP, &rec.MessageCount, &lastAward)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.LastAwardAt = unixOrZero(lastAward)
	return &rec, nil
}

func (s *Store) SetUserLevel(ctx context.Context, rec leveling.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_levels (guild_id, user_id, current_level_xp, level, total_xp, message_count, last_award_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			current_level_xp = excluded.current_level_xp,
			level = excluded.level,
			total_xp = excluded.total_xp,
			message_count = excluded.message_count,
			last_award_at = excluded.last_award_at
	`, rec.GuildID, rec.UserID, rec.CurrentLevelXP, rec.Level, rec.TotalXP, rec.MessageCount, timeToUnix(rec.LastAwardAt))
	return err
}

func (s *Store) DeleteUserLevel(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_levels WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	return err
}

func (s *Store) AllLevels(ctx context.Context, guildID string) ([]leveling.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, current_level_xp, level, total_xp, message_count, last_award_at
		FROM user_levels
		WHERE guild_id = ?
		ORDER BY total_xp DESC, user_id
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []leveling.Record
	for rows.Next() {
		rec := leveling.Record{GuildID: guildID}
		var lastAward int64
		if err := rows.Scan(&rec.UserID, &rec.CurrentLevelXP, &rec.Level, &rec.TotalXP, &rec.MessageCount, &lastAward); err != nil {
			return nil, err
		}
		rec.LastAwardAt = unixOrZero(lastAward)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixOrZero(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0)
}
