// Package pgstore stores leveling rows in PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"errors"
	"time"

	"guildkeeper/internal/leveling"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_levels (
	guild_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	current_level_xp BIGINT NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 1,
	total_xp BIGINT NOT NULL DEFAULT 0,
	message_count BIGINT NOT NULL DEFAULT 0,
	last_award_at TIMESTAMPTZ,
	PRIMARY KEY (guild_id, user_id)
);
CREATE INDEX IF NOT EXISTS idx_user_levels_total ON user_levels (guild_id, total_xp DESC);
`

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) GetUserLevel(ctx context.Context, guildID, userID string) (*leveling.Record, error) {
	rec := leveling.Record{GuildID: guildID, UserID: userID}
	var lastAward *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT current_level_xp, level, total_xp, message_count, last_award_at
		FROM user_levels
		WHERE guild_id = $1 AND user_id = $2
	`, guildID, userID).Scan(&rec.CurrentLevelXP, &rec.Level, &rec.TotalXP, &rec.MessageCount, &lastAward)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if lastAward != nil {
		rec.LastAwardAt = *lastAward
	}
	return &rec, nil
}

func (s *Store) SetUserLevel(ctx context.Context, rec leveling.Record) error {
	var lastAward *time.Time
	if !rec.LastAwardAt.IsZero() {
		lastAward = &rec.LastAwardAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_levels (guild_id, user_id, current_level_xp, level, total_xp, message_count, last_award_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guild_id, user_id) DO UPDATE SET
			current_level_xp = EXCLUDED.current_level_xp,
			level = EXCLUDED.level,
			total_xp = EXCLUDED.total_xp,
			message_count = EXCLUDED.message_count,
			last_award_at = EXCLUDED.last_award_at
	`, rec.GuildID, rec.UserID, rec.CurrentLevelXP, rec.Level, rec.TotalXP, rec.MessageCount, lastAward)
	return err
}

func (s *Store) DeleteUserLevel(ctx context.Context, guildID, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_levels WHERE guild_id = $1 AND user_id = $2`, guildID, userID)
	return err
}

func (s *Store) AllLevels(ctx context.Context, guildID string) ([]leveling.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, current_level_xp, level, total_xp, message_count, last_award_at
		FROM user_levels
		WHERE guild_id = $1
		ORDER BY total_xp DESC, user_id
	`, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []leveling.Record
	for rows.Next() {
		rec := leveling.Record{GuildID: guildID}
		var lastAward *time.Time
		if err := rows.Scan(&rec.UserID, &rec.CurrentLevelXP, &rec.Level, &rec.TotalXP, &rec.MessageCount, &lastAward); err != nil {
			return nil, err
		}
		if lastAward != nil {
			rec.LastAwardAt = *lastAward
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
