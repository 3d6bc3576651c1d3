package engagement

import (
	"errors"
	"fmt"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

var (
	ErrUnknownEvent   = errors.New("unknown event type")
	ErrSyntheticEvent = errors.New("STATE_CHANGED is emitted by the orchestrator only")
	ErrUnknownActor   = errors.New("unknown triggered_by")
	ErrHumanOnly      = errors.New("explicit state transitions must be triggered by a human")
)

// ValidateEvent checks that e may be submitted by actor.
func ValidateEvent(e outreach.EventType, actor outreach.TriggeredBy) error {
	if !e.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, string(e))
	}
	if e == outreach.EventStateChanged {
		return ErrSyntheticEvent
	}
	if !actor.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownActor, string(actor))
	}
	if IsManualTransition(e) && actor != outreach.TriggeredByHuman {
		return fmt.Errorf("%w: %s", ErrHumanOnly, e)
	}
	return nil
}
