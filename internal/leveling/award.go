package leveling

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"guildkeeper/internal/modules/audit"

	"go.uber.org/zap"
)

// Message is a chat message as seen by the award pipeline.
type Message struct {
	GuildID     string
	ChannelID   string
	MessageID   string
	UserID      string
	IsBot       bool
	Length      int
	Attachments int
	HasLink     bool
}

// Notifier is the chat client surface used for level-up side effects.
type Notifier interface {
	Reply(ctx context.Context, msg Message, content string) error
	SendToChannel(ctx context.Context, channelID, content string) error
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
}

type Journal interface {
	Log(ctx context.Context, level, guildID, userID, event, details string)
}

type Settings struct {
	XPBase               int64
	XPVariance           int64
	LengthThreshold      int
	LengthMultiplier     float64
	AttachmentMultiplier float64
	LinkMultiplier       float64
	AnnounceChannelID    string
	LevelUpMessage       string
	LevelRoles           map[int]string
}

type Outcome int

const (
	OutcomeAwarded Outcome = iota
	OutcomeIgnored
	OutcomeCooldown
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAwarded:
		return "awarded"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeCooldown:
		return "cooldown"
	default:
		return "failed"
	}
}

type Award struct {
	Outcome       Outcome
	Delta         int64
	Record        Record
	PreviousLevel int
	Status        LookupStatus
}

func (a Award) LeveledUp() bool {
	return a.Outcome == OutcomeAwarded && a.Record.Level > a.PreviousLevel
}

type Service struct {
	curve    Curve
	settings Settings
	store    Store
	cooldown *CooldownTracker
	logger   *zap.Logger
	notifier Notifier
	journal  Journal
	metrics  *Metrics
	clock    Clock
	randN    func(n int64) int64
	announce func(ctx context.Context, guildID string) (string, bool)
}

func NewService(curve Curve, settings Settings, store Store, cooldown *CooldownTracker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		curve:    curve,
		settings: settings,
		store:    store,
		cooldown: cooldown,
		logger:   logger,
		clock:    realClock{},
		randN:    rand.Int64N,
	}
	s.announce = func(context.Context, string) (string, bool) { return s.settings.AnnounceChannelID, true }
	return s
}

func (s *Service) WithNotifier(notifier Notifier) { s.notifier = notifier }

func (s *Service) WithJournal(journal Journal) { s.journal = journal }

func (s *Service) WithMetrics(metrics *Metrics) { s.metrics = metrics }

func (s *Service) WithClock(clock Clock) { s.clock = clock }

// WithRand replaces the variance source; randN(n) must return a value in [0, n).
func (s *Service) WithRand(randN func(n int64) int64) { s.randN = randN }

// WithAnnounceResolver overrides how the level-up channel is picked per guild.
// An empty channel means "reply to the triggering message"; enabled=false
// suppresses the announcement while roles are still granted.
func (s *Service) WithAnnounceResolver(resolve func(ctx context.Context, guildID string) (channelID string, enabled bool)) {
	s.announce = resolve
}

func (s *Service) Curve() Curve { return s.curve }

func (s *Service) Cooldown() *CooldownTracker { return s.cooldown }

// ComputeXP rolls the base amount and applies the compounding bonuses.
func (s *Service) ComputeXP(msg Message) int64 {
	amount := s.settings.XPBase
	if s.settings.XPVariance > 0 {
		amount += s.randN(s.settings.XPVariance + 1)
	}
	return ApplyBonuses(amount, msg, s.settings)
}

func ApplyBonuses(amount int64, msg Message, settings Settings) int64 {
	xp := float64(amount)
	if msg.Length > settings.LengthThreshold && settings.LengthMultiplier > 0 {
		xp *= settings.LengthMultiplier
	}
	if msg.Attachments > 0 && settings.AttachmentMultiplier > 0 {
		xp *= settings.AttachmentMultiplier
	}
	if msg.HasLink && settings.LinkMultiplier > 0 {
		xp *= settings.LinkMultiplier
	}
	xp = math.Floor(xp)
	if xp <= 0 {
		return 0
	}
	if xp >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(xp)
}

// HandleMessage runs the award pipeline for one message. It never returns an
// error: failures are logged and reported through Award.Outcome.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (award Award) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("xp pipeline panic", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.UserID), zap.Any("panic", r))
			award = Award{Outcome: OutcomeFailed}
		}
		s.metrics.observe(award)
		if s.cooldown != nil {
			s.metrics.setCooldownEntries(s.cooldown.Len())
		}
	}()

	if msg.IsBot || msg.GuildID == "" || msg.UserID == "" {
		return Award{Outcome: OutcomeIgnored}
	}
	now := s.clock.Now()
	if s.cooldown != nil && !s.cooldown.Allow(msg.UserID, msg.GuildID, now) {
		return Award{Outcome: OutcomeCooldown}
	}

	delta := s.ComputeXP(msg)
	award, err := s.apply(ctx, msg.GuildID, msg.UserID, delta, now, true)
	if err != nil {
		s.logger.Warn("xp award lost", zap.String("guild_id", msg.GuildID), zap.String("user_id", msg.UserID), zap.Int64("delta", delta), zap.Error(err))
		return Award{Outcome: OutcomeFailed, Delta: delta}
	}
	if award.LeveledUp() {
		s.levelUp(ctx, &msg, award)
	}
	return award
}

func (s *Service) apply(ctx context.Context, guildID, userID string, delta int64, now time.Time, countMessage bool) (Award, error) {
	lookup, err := GetOrCreate(ctx, s.store, guildID, userID)
	if err != nil {
		return Award{}, fmt.Errorf("load level: %w", err)
	}
	rec := lookup.Record
	previous := rec.Level

	rec.CurrentLevelXP = addSat(rec.CurrentLevelXP, delta)
	rec.TotalXP = addSat(rec.TotalXP, delta)
	if countMessage {
		rec.MessageCount++
	}
	rec.LastAwardAt = now
	rec.Level, rec.CurrentLevelXP = s.curve.Advance(rec.Level, rec.CurrentLevelXP)

	if err := s.store.SetUserLevel(ctx, rec); err != nil {
		return Award{}, fmt.Errorf("save level: %w", err)
	}
	return Award{
		Outcome:       OutcomeAwarded,
		Delta:         delta,
		Record:        rec,
		PreviousLevel: previous,
		Status:        lookup.Status,
	}, nil
}

// levelUp announces the new level, journals it and grants the roles of every
// level crossed. Each side effect fails independently.
func (s *Service) levelUp(ctx context.Context, msg *Message, award Award) {
	rec := award.Record
	if s.journal != nil {
		s.journal.Log(ctx, audit.LevelInfo, rec.GuildID, rec.UserID, audit.EventLevelUp,
			fmt.Sprintf("from=%d to=%d total_xp=%d", award.PreviousLevel, rec.Level, rec.TotalXP))
	}
	if s.notifier == nil {
		return
	}

	content := s.levelUpContent(rec)
	channelID, enabled := s.announce(ctx, rec.GuildID)
	var err error
	switch {
	case !enabled:
	case channelID != "":
		err = s.notifier.SendToChannel(ctx, channelID, content)
	case msg != nil:
		err = s.notifier.Reply(ctx, *msg, content)
	}
	if err != nil {
		s.logger.Warn("level-up notification failed", zap.String("guild_id", rec.GuildID), zap.String("user_id", rec.UserID), zap.Error(err))
	}

	for level := award.PreviousLevel + 1; level <= rec.Level; level++ {
		roleID := s.settings.LevelRoles[level]
		if roleID == "" {
			continue
		}
		if err := s.notifier.GrantRole(ctx, rec.GuildID, rec.UserID, roleID); err != nil {
			s.logger.Warn("level role grant failed", zap.String("guild_id", rec.GuildID), zap.String("user_id", rec.UserID), zap.String("role_id", roleID), zap.Int("level", level), zap.Error(err))
			if s.journal != nil {
				s.journal.Log(ctx, audit.LevelWarn, rec.GuildID, rec.UserID, audit.EventRoleFailed, fmt.Sprintf("level=%d role=%s", level, roleID))
			}
		}
	}
}

func (s *Service) levelUpContent(rec Record) string {
	template := s.settings.LevelUpMessage
	if template == "" {
		template = "{user} reached level {level}!"
	}
	return strings.NewReplacer(
		"{user}", "<@"+rec.UserID+">",
		"{level}", strconv.Itoa(rec.Level),
		"{total_xp}", strconv.FormatInt(rec.TotalXP, 10),
	).Replace(template)
}
