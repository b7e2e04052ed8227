package leveling

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]Record
	getErr  error
	setErr  error
	setCall int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]Record)}
}

func (f *fakeStore) GetUserLevel(_ context.Context, guildID, userID string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.rows[guildID+":"+userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) SetUserLevel(_ context.Context, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCall++
	if f.setErr != nil {
		return f.setErr
	}
	f.rows[rec.GuildID+":"+rec.UserID] = rec
	return nil
}

func (f *fakeStore) DeleteUserLevel(_ context.Context, guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, guildID+":"+userID)
	return nil
}

func (f *fakeStore) AllLevels(_ context.Context, guildID string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, rec := range f.rows {
		if rec.GuildID == guildID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

type fakeNotifier struct {
	replies  []string
	channels []string
	roles    []string
	grantErr error
}

func (f *fakeNotifier) Reply(_ context.Context, _ Message, content string) error {
	f.replies = append(f.replies, content)
	return nil
}

func (f *fakeNotifier) SendToChannel(_ context.Context, channelID, content string) error {
	f.channels = append(f.channels, channelID+"|"+content)
	return nil
}

func (f *fakeNotifier) GrantRole(_ context.Context, _, _, roleID string) error {
	f.roles = append(f.roles, roleID)
	return f.grantErr
}

type fakeJournal struct {
	events []string
}

func (f *fakeJournal) Log(_ context.Context, _, _, _, event, _ string) {
	f.events = append(f.events, event)
}

type harness struct {
	service  *Service
	store    *fakeStore
	notifier *fakeNotifier
	journal  *fakeJournal
	clock    *fakeClock
}

func newHarness(settings Settings, window time.Duration) harness {
	store := newFakeStore()
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tracker := NewCooldownTracker(CooldownConfig{Window: window})
	tracker.WithClock(clock)

	service := NewService(Curve{Base: 100, Growth: 1.5}, settings, store, tracker, zap.NewNop())
	notifier := &fakeNotifier{}
	journal := &fakeJournal{}
	service.WithNotifier(notifier)
	service.WithJournal(journal)
	service.WithClock(clock)
	service.WithRand(func(int64) int64 { return 0 })
	return harness{service: service, store: store, notifier: notifier, journal: journal, clock: clock}
}

func message(userID string) Message {
	return Message{GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: userID, Length: 10}
}

func TestAwardReachesLevelTwoAtExactThreshold(t *testing.T) {
	h := newHarness(Settings{XPBase: 250}, time.Minute)

	award := h.service.HandleMessage(context.Background(), message("u1"))
	if award.Outcome != OutcomeAwarded {
		t.Fatalf("expected award, got %s", award.Outcome)
	}
	if award.Status != New {
		t.Fatalf("expected new user, got %s", award.Status)
	}
	rec := award.Record
	if rec.Level != 2 || rec.CurrentLevelXP != 0 || rec.TotalXP != 250 || rec.MessageCount != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if len(h.notifier.replies) != 1 || h.notifier.replies[0] != "<@u1> reached level 2!" {
		t.Fatalf("unexpected replies %v", h.notifier.replies)
	}
	if len(h.journal.events) != 1 || h.journal.events[0] != "level_up" {
		t.Fatalf("unexpected journal %v", h.journal.events)
	}
}

func TestAwardCooldownYieldsSingleAward(t *testing.T) {
	h := newHarness(Settings{XPBase: 20}, 60*time.Second)

	first := h.service.HandleMessage(context.Background(), message("u1"))
	h.clock.Advance(10 * time.Second)
	second := h.service.HandleMessage(context.Background(), message("u1"))

	if first.Outcome != OutcomeAwarded || second.Outcome != OutcomeCooldown {
		t.Fatalf("expected awarded then cooldown, got %s then %s", first.Outcome, second.Outcome)
	}
	rec, _ := h.store.GetUserLevel(context.Background(), "g1", "u1")
	if rec == nil || rec.TotalXP != 20 || rec.MessageCount != 1 {
		t.Fatalf("expected exactly one award, got %+v", rec)
	}
}

func TestBonusesCompound(t *testing.T) {
	settings := Settings{LengthThreshold: 100, LengthMultiplier: 1.5, AttachmentMultiplier: 1.2, LinkMultiplier: 1.1}
	msg := Message{Length: 150, Attachments: 1}
	if got := ApplyBonuses(20, msg, settings); got != 36 {
		t.Fatalf("expected 20*1.5*1.2 = 36, got %d", got)
	}
	msg.HasLink = true
	if got := ApplyBonuses(20, msg, settings); got != 39 {
		t.Fatalf("expected floor(39.6) = 39, got %d", got)
	}
	if got := ApplyBonuses(20, Message{Length: 100}, settings); got != 20 {
		t.Fatalf("length at threshold must not earn the bonus, got %d", got)
	}
}

func TestComputeXPUsesVariance(t *testing.T) {
	h := newHarness(Settings{XPBase: 15, XPVariance: 10}, 0)
	var bound int64
	h.service.WithRand(func(n int64) int64 {
		bound = n
		return n - 1
	})
	if got := h.service.ComputeXP(message("u1")); got != 25 {
		t.Fatalf("expected 25, got %d", got)
	}
	if bound != 11 {
		t.Fatalf("variance must be inclusive, rand bound %d", bound)
	}
}

func TestAwardMultiLevelJumpGrantsCrossedRoles(t *testing.T) {
	settings := Settings{XPBase: 1000, LevelRoles: map[int]string{2: "r2", 3: "r3", 9: "r9"}}
	h := newHarness(settings, 0)

	award := h.service.HandleMessage(context.Background(), message("u1"))
	if award.Record.Level-award.PreviousLevel < 2 {
		t.Fatalf("expected a multi-level jump, got %d -> %d", award.PreviousLevel, award.Record.Level)
	}
	if len(h.notifier.roles) != 2 || h.notifier.roles[0] != "r2" || h.notifier.roles[1] != "r3" {
		t.Fatalf("unexpected role grants %v", h.notifier.roles)
	}
}

func TestRoleGrantFailureIsSwallowed(t *testing.T) {
	h := newHarness(Settings{XPBase: 300, LevelRoles: map[int]string{2: "r2"}}, 0)
	h.notifier.grantErr = errors.New("missing permissions")

	award := h.service.HandleMessage(context.Background(), message("u1"))
	if award.Outcome != OutcomeAwarded || award.Record.Level != 2 {
		t.Fatalf("award must survive role failure, got %+v", award)
	}
	if len(h.notifier.replies) != 1 {
		t.Fatalf("notification must still be sent")
	}
	rec, _ := h.store.GetUserLevel(context.Background(), "g1", "u1")
	if rec == nil || rec.Level != 2 {
		t.Fatalf("award must stay persisted, got %+v", rec)
	}
}

func TestAnnounceChannel(t *testing.T) {
	h := newHarness(Settings{XPBase: 300, AnnounceChannelID: "levels"}, 0)
	h.service.HandleMessage(context.Background(), message("u1"))
	if len(h.notifier.channels) != 1 || len(h.notifier.replies) != 0 {
		t.Fatalf("expected channel announcement, got channels=%v replies=%v", h.notifier.channels, h.notifier.replies)
	}

	h.service.WithAnnounceResolver(func(context.Context, string) (string, bool) { return "", true })
	h.service.HandleMessage(context.Background(), message("u2"))
	if len(h.notifier.replies) != 1 {
		t.Fatalf("expected reply when resolver returns no channel")
	}
}

func TestMutedAnnouncementStillGrantsRoles(t *testing.T) {
	h := newHarness(Settings{XPBase: 300, LevelRoles: map[int]string{2: "r2"}}, 0)
	h.service.WithAnnounceResolver(func(context.Context, string) (string, bool) { return "levels", false })

	award := h.service.HandleMessage(context.Background(), message("u1"))
	if !award.LeveledUp() {
		t.Fatalf("expected level up, got %+v", award)
	}
	if len(h.notifier.replies) != 0 || len(h.notifier.channels) != 0 {
		t.Fatalf("muted guild must not be announced, got channels=%v replies=%v", h.notifier.channels, h.notifier.replies)
	}
	if len(h.notifier.roles) != 1 {
		t.Fatalf("expected role grant, got %v", h.notifier.roles)
	}
}

func TestPersistenceFailureDoesNotPropagate(t *testing.T) {
	h := newHarness(Settings{XPBase: 20}, 0)
	h.store.setErr = errors.New("db down")

	award := h.service.HandleMessage(context.Background(), message("u1"))
	if award.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", award.Outcome)
	}

	h.store.setErr = nil
	h.store.getErr = errors.New("timeout")
	if award := h.service.HandleMessage(context.Background(), message("u1")); award.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome on read error, got %s", award.Outcome)
	}
}

func TestIgnoredMessages(t *testing.T) {
	h := newHarness(Settings{XPBase: 20}, 0)
	bot := message("u1")
	bot.IsBot = true
	direct := message("u1")
	direct.GuildID = ""

	for _, msg := range []Message{bot, direct} {
		if award := h.service.HandleMessage(context.Background(), msg); award.Outcome != OutcomeIgnored {
			t.Fatalf("expected ignored, got %s", award.Outcome)
		}
	}
	if h.store.setCall != 0 {
		t.Fatalf("ignored messages must not persist")
	}
}

func TestMalformedRecordTreatedAsNew(t *testing.T) {
	h := newHarness(Settings{XPBase: 20}, 0)
	h.store.rows["g1:u1"] = Record{GuildID: "g1", UserID: "u1", Level: 0, TotalXP: -5}

	award := h.service.HandleMessage(context.Background(), message("u1"))
	if award.Status != New || award.Record.TotalXP != 20 || award.Record.Level != 1 {
		t.Fatalf("expected fresh record, got %+v", award)
	}
}

func TestAwardsNeverDecreaseTotals(t *testing.T) {
	h := newHarness(Settings{XPBase: 5, XPVariance: 40, LengthThreshold: 10, LengthMultiplier: 2}, 0)
	step := int64(0)
	h.service.WithRand(func(n int64) int64 {
		step = (step + 13) % n
		return step
	})

	var lastTotal, lastCount int64
	for i := 0; i < 200; i++ {
		msg := message("u1")
		msg.Length = i % 30
		award := h.service.HandleMessage(context.Background(), msg)
		if award.Record.TotalXP < lastTotal || award.Record.MessageCount < lastCount {
			t.Fatalf("totals decreased at step %d", i)
		}
		curve := h.service.Curve()
		if curve.MinTotalXP(award.Record.Level)+award.Record.CurrentLevelXP != award.Record.TotalXP {
			t.Fatalf("record invariant broken at step %d: %+v", i, award.Record)
		}
		lastTotal, lastCount = award.Record.TotalXP, award.Record.MessageCount
	}
}

func TestMetricsObserveOutcomes(t *testing.T) {
	h := newHarness(Settings{XPBase: 300}, time.Minute)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	h.service.WithMetrics(metrics)

	h.service.HandleMessage(context.Background(), message("u1"))
	h.service.HandleMessage(context.Background(), message("u1"))

	if got := testutil.ToFloat64(metrics.awards.WithLabelValues("awarded")); got != 1 {
		t.Fatalf("expected 1 awarded, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.awards.WithLabelValues("cooldown")); got != 1 {
		t.Fatalf("expected 1 cooldown, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.levelUps); got != 1 {
		t.Fatalf("expected 1 level up, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.cooldownEntries); got != 1 {
		t.Fatalf("expected 1 cooldown entry, got %f", got)
	}
}

func TestGrantXPCountsPointsButNotMessages(t *testing.T) {
	h := newHarness(Settings{}, time.Minute)
	metrics := NewMetrics(prometheus.NewRegistry())
	h.service.WithMetrics(metrics)

	if _, err := h.service.GrantXP(context.Background(), "g1", "u1", 500); err != nil {
		t.Fatalf("grant: %v", err)
	}

	if got := testutil.ToFloat64(metrics.awards.WithLabelValues("awarded")); got != 0 {
		t.Fatalf("grants must not count as messages, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.points); got != 500 {
		t.Fatalf("expected 500 xp, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.levelUps); got != 2 {
		t.Fatalf("expected 2 level ups, got %f", got)
	}
}
