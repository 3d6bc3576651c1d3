package engagement

import (
	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

// manualTargets maps explicit human transition events to their target state.
var manualTargets = map[outreach.EventType]outreach.EngagementState{
	outreach.EventMarkedEvaluating: outreach.StateEvaluating,
	outreach.EventMarkedActive:     outreach.StateActive,
	outreach.EventPaused:           outreach.StatePaused,
	outreach.EventMarkedDormant:    outreach.StateDormant,
	outreach.EventArchived:         outreach.StateArchived,
	outreach.EventReactivated:      outreach.StateContacted,
}

// IsManualTransition reports whether e is an explicit, human-only state move.
func IsManualTransition(e outreach.EventType) bool {
	_, ok := manualTargets[e]
	return ok
}

// Next returns the state after event e given the post-event score.
//
// Guards run before the per-state dispatch, in this order: a decline moves to
// DECLINED unless the institution is ARCHIVED; an acceptance always moves to READY;
// explicit human transitions move to their target. Passive signals only promote
// UNCONTACTED and CONTACTED; every other state is sticky.
func Next(current outreach.EngagementState, e outreach.EventType, postScore, threshold int) outreach.EngagementState {
	if e == outreach.EventInviteDeclined {
		if current == outreach.StateArchived {
			return outreach.StateArchived
		}
		return outreach.StateDeclined
	}
	if e == outreach.EventInviteAccepted {
		return outreach.StateReady
	}
	if target, ok := manualTargets[e]; ok {
		return target
	}

	switch current {
	case outreach.StateUncontacted:
		// strictly greater: a first touch landing exactly on the threshold is only CONTACTED
		if postScore > threshold {
			return outreach.StateEngaged
		}
		return outreach.StateContacted
	case outreach.StateContacted:
		if postScore >= threshold {
			return outreach.StateEngaged
		}
		return outreach.StateContacted
	default:
		return current
	}
}

// Next is the configured-threshold form of the package-level Next.
func (s Scorer) Next(current outreach.EngagementState, e outreach.EventType, postScore int) outreach.EngagementState {
	return Next(current, e, postScore, s.cfg.Threshold)
}
