package outreach

import "strings"

// EngagementState is the funnel stage of a prospective institution.
type EngagementState string

const (
	StateUncontacted EngagementState = "UNCONTACTED"
	StateContacted   EngagementState = "CONTACTED"
	StateEngaged     EngagementState = "ENGAGED"
	StateEvaluating  EngagementState = "EVALUATING"
	StateReady       EngagementState = "READY"
	StateActive      EngagementState = "ACTIVE"
	StatePaused      EngagementState = "PAUSED"
	StateDeclined    EngagementState = "DECLINED"
	StateDormant     EngagementState = "DORMANT"
	StateArchived    EngagementState = "ARCHIVED"
)

// AllStates lists every engagement state in funnel order.
var AllStates = []EngagementState{
	StateUncontacted,
	StateContacted,
	StateEngaged,
	StateEvaluating,
	StateReady,
	StateActive,
	StatePaused,
	StateDeclined,
	StateDormant,
	StateArchived,
}

func (s EngagementState) Valid() bool {
	for _, known := range AllStates {
		if s == known {
			return true
		}
	}
	return false
}

func (s EngagementState) String() string { return string(s) }

// ParseState accepts any casing and surrounding whitespace.
func ParseState(raw string) (EngagementState, bool) {
	s := EngagementState(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}
