package engagement

import (
	"time"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

// Scorer converts stored scores into effective scores and applies event points.
// It holds no state beyond its configuration and is safe for concurrent use.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) Scorer {
	if cfg.Points == nil {
		cfg.Points = map[outreach.EventType]int{}
	}
	return Scorer{cfg: cfg}
}

func (s Scorer) Config() Config { return s.cfg }

// Effective applies time decay to raw. Decay accrues per whole elapsed day since the
// last interaction; no interaction means no decay.
func (s Scorer) Effective(raw int, lastInteraction *time.Time, now time.Time) int {
	if lastInteraction == nil {
		return s.clamp(raw)
	}
	days := DaysSince(*lastInteraction, now)
	return s.clamp(raw - days*s.cfg.DecayPerDay)
}

// Apply adds the points of e to an effective score.
func (s Scorer) Apply(effective int, e outreach.EventType) int {
	return s.clamp(effective + s.Points(e))
}

// Points returns the fixed point value of e; unknown events score 0.
func (s Scorer) Points(e outreach.EventType) int {
	return s.cfg.Points[e]
}

func (s Scorer) clamp(v int) int {
	return Clamp(v, 0, s.cfg.MaxScore)
}

// DaysSince counts whole 24h periods from last to now, never negative.
func DaysSince(last, now time.Time) int {
	d := now.Sub(last)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
