// Package gormstore stores leveling rows through gorm. Production uses the
// MySQL dialect; any gorm dialector works.
package gormstore

import (
	"context"
	"errors"
	"time"

	"guildkeeper/internal/leveling"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type UserLevel struct {
	GuildID        string `gorm:"primaryKey;size:32"`
	UserID         string `gorm:"primaryKey;size:32"`
	CurrentLevelXP int64  `gorm:"not null;default:0"`
	Level          int    `gorm:"not null;default:1"`
	TotalXP        int64  `gorm:"not null;default:0;index:idx_user_levels_total"`
	MessageCount   int64  `gorm:"not null;default:0"`
	LastAwardAt    *time.Time
}

func (UserLevel) TableName() string { return "user_levels" }

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// OpenMySQL connects with a go-sql-driver DSN, e.g.
// user:pass@tcp(host:3306)/bot?charset=utf8mb4&parseTime=True&loc=UTC.
func OpenMySQL(dsn string) (*Store, error) {
	return Open(mysql.Open(dsn))
}

func Open(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&UserLevel{})
}

func (s *Store) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *Store) GetUserLevel(ctx context.Context, guildID, userID string) (*leveling.Record, error) {
	var row UserLevel
	err := s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	rec := toRecord(row)
	return &rec, nil
}

func (s *Store) SetUserLevel(ctx context.Context, rec leveling.Record) error {
	row := UserLevel{
		GuildID:        rec.GuildID,
		UserID:         rec.UserID,
		CurrentLevelXP: rec.CurrentLevelXP,
		Level:          rec.Level,
		TotalXP:        rec.TotalXP,
		MessageCount:   rec.MessageCount,
	}
	if !rec.LastAwardAt.IsZero() {
		stamp := rec.LastAwardAt.UTC()
		row.LastAwardAt = &stamp
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

func (s *Store) DeleteUserLevel(ctx context.Context, guildID, userID string) error {
	return s.db.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Delete(&UserLevel{}).Error
}

func (s *Store) AllLevels(ctx context.Context, guildID string) ([]leveling.Record, error) {
	var rows []UserLevel
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("total_xp DESC").
		Order("user_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]leveling.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records, nil
}

func toRecord(row UserLevel) leveling.Record {
	rec := leveling.Record{
		GuildID:        row.GuildID,
		UserID:         row.UserID,
		CurrentLevelXP: row.CurrentLevelXP,
		Level:          row.Level,
		TotalXP:        row.TotalXP,
		MessageCount:   row.MessageCount,
	}
	if row.LastAwardAt != nil {
		rec.LastAwardAt = *row.LastAwardAt
	}
	return rec
}
