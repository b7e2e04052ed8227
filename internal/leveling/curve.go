package leveling

import (
	"errors"
	"math"
)

const DefaultMaxLevel = 1000

// Curve is the geometric level curve. RequiredXP(level) is the threshold of
// one level; a user reaches level L (L >= 2) once the thresholds of levels
// 1..L are all covered by their total XP.
type Curve struct {
	Base     int64
	Growth   float64
	MaxLevel int
}

// Validate enforces Base*(Growth-1) >= 1, which makes consecutive unfloored
// thresholds at least 1 apart and so keeps RequiredXP strictly increasing
// after flooring.
func (c Curve) Validate() error {
	if c.Base < 1 {
		return errors.New("curve base must be >= 1")
	}
	if c.Growth <= 1 {
		return errors.New("curve growth must be > 1")
	}
	if float64(c.Base)*(c.Growth-1) < 1 {
		return errors.New("curve base*(growth-1) must be >= 1")
	}
	if c.MaxLevel != 0 && c.MaxLevel < 2 {
		return errors.New("curve max level must be >= 2")
	}
	return nil
}

func (c Curve) configuredMaxLevel() int {
	if c.MaxLevel < 2 {
		return DefaultMaxLevel
	}
	return c.MaxLevel
}

// EffectiveMaxLevel is the highest reachable level: MaxLevel, or lower when
// MinTotalXP of the next level would no longer fit in an int64.
func (c Curve) EffectiveMaxLevel() int {
	return c.maxLevel()
}

func (c Curve) maxLevel() int {
	limit := c.configuredMaxLevel()
	var total int64
	for level := 1; level < limit; level++ {
		need := c.span(level)
		if need >= math.MaxInt64-total {
			return level
		}
		total += need
	}
	return limit
}

func (c Curve) RequiredXP(level int) int64 {
	if level < 1 {
		level = 1
	}
	value := float64(c.Base) * math.Pow(c.Growth, float64(level-1))
	if value >= math.MaxInt64 || math.IsInf(value, 1) {
		return math.MaxInt64
	}
	return int64(math.Floor(value))
}

// span is the XP needed to go from level to level+1.
func (c Curve) span(level int) int64 {
	if level <= 1 {
		return addSat(c.RequiredXP(1), c.RequiredXP(2))
	}
	return c.RequiredXP(level + 1)
}

// MinTotalXP is the smallest total XP that maps to level.
func (c Curve) MinTotalXP(level int) int64 {
	if level > c.maxLevel() {
		level = c.maxLevel()
	}
	var total int64
	for l := 1; l < level; l++ {
		total = addSat(total, c.span(l))
	}
	return total
}

// Advance is the level-up loop: it moves whole spans out of current until
// the next level is out of reach. Termination follows from every span being
// >= Base >= 1, and the loop never passes MaxLevel.
func (c Curve) Advance(level int, current int64) (int, int64) {
	if level < 1 {
		level = 1
	}
	limit := c.maxLevel()
	for level < limit {
		need := c.span(level)
		if current < need {
			break
		}
		current -= need
		level++
	}
	return level, current
}

// Split maps a total to (level, XP within that level).
func (c Curve) Split(total int64) (int, int64) {
	if total < 0 {
		total = 0
	}
	return c.Advance(1, total)
}

func (c Curve) LevelForTotalXP(total int64) int {
	level, _ := c.Split(total)
	return level
}

func addSat(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
