package engagement

import (
	"fmt"
	"strings"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

const (
	DefaultDecayPerDay = 1
	DefaultMaxScore    = 100
	DefaultThreshold   = 30
)

// DefaultPoints is the point table for scored events. Events absent from the table score 0.
var DefaultPoints = map[outreach.EventType]int{
	outreach.EventEmailOpened:        5,
	outreach.EventLinkClicked:        10,
	outreach.EventLandingPageViewed:  15,
	outreach.EventInviteAccepted:     50,
	outreach.EventInviteDeclined:     -50,
	outreach.EventManualIntervention: 0,
}

// Config holds the tunable business parameters of scoring and transitions.
type Config struct {
	DecayPerDay int
	MaxScore    int
	Threshold   int
	Points      map[outreach.EventType]int
}

func DefaultConfig() Config {
	return Config{
		DecayPerDay: DefaultDecayPerDay,
		MaxScore:    DefaultMaxScore,
		Threshold:   DefaultThreshold,
		Points:      copyPoints(DefaultPoints),
	}
}

// WithPointOverrides returns a copy of c whose point table has overrides applied.
// Keys are event type names in any casing.
func (c Config) WithPointOverrides(overrides map[string]int) (Config, error) {
	out := c
	out.Points = copyPoints(c.Points)
	for raw, pts := range overrides {
		et, ok := outreach.ParseEventType(raw)
		if !ok || et == outreach.EventStateChanged {
			return Config{}, fmt.Errorf("engagement points: unknown event type %q", strings.TrimSpace(raw))
		}
		out.Points[et] = pts
	}
	return out, nil
}

func (c Config) Validate() error {
	if c.MaxScore <= 0 {
		return fmt.Errorf("engagement: max score must be > 0")
	}
	if c.DecayPerDay < 0 {
		return fmt.Errorf("engagement: decay per day must be >= 0")
	}
	if c.Threshold < 0 || c.Threshold > c.MaxScore {
		return fmt.Errorf("engagement: threshold must be within [0, %d]", c.MaxScore)
	}
	return nil
}

func copyPoints(in map[outreach.EventType]int) map[outreach.EventType]int {
	out := make(map[outreach.EventType]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
