package leveling

import "github.com/prometheus/client_golang/prometheus"

// Metrics is optional; a nil *Metrics records nothing.
type Metrics struct {
	awards          *prometheus.CounterVec
	points          prometheus.Counter
	levelUps        prometheus.Counter
	cooldownEntries prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		awards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "guildkeeper",
			Subsystem: "leveling",
			Name:      "messages_total",
			Help:      "Messages seen by the XP pipeline, by outcome.",
		}, []string{"outcome"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guildkeeper",
			Subsystem: "leveling",
			Name:      "xp_awarded_total",
			Help:      "XP points persisted by message awards and grants.",
		}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "guildkeeper",
			Subsystem: "leveling",
			Name:      "level_ups_total",
			Help:      "Levels gained across all users.",
		}),
		cooldownEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "guildkeeper",
			Subsystem: "leveling",
			Name:      "cooldown_entries",
			Help:      "Entries currently held by the cooldown tracker.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.awards, m.points, m.levelUps, m.cooldownEntries)
	}
	return m
}

func (m *Metrics) observe(award Award) {
	if m == nil {
		return
	}
	m.awards.WithLabelValues(award.Outcome.String()).Inc()
	if award.Outcome == OutcomeAwarded {
		m.observeXP(award)
	}
}

// observeXP counts persisted XP and levels gained. Grants call it directly
// since they are not messages.
func (m *Metrics) observeXP(award Award) {
	if m == nil {
		return
	}
	m.points.Add(float64(award.Delta))
	if gained := award.Record.Level - award.PreviousLevel; gained > 0 {
		m.levelUps.Add(float64(gained))
	}
}

func (m *Metrics) setCooldownEntries(n int) {
	if m == nil {
		return
	}
	m.cooldownEntries.Set(float64(n))
}
