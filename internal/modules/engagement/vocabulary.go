package engagement

import (
	"strings"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

// TriggerSignal is the vocabulary of inbound tracking signals (email pixels, link
// redirects, landing pages, invitation responses).
type TriggerSignal string

const (
	SignalSent          TriggerSignal = "sent"
	SignalOpen          TriggerSignal = "open"
	SignalClick         TriggerSignal = "click"
	SignalPageView      TriggerSignal = "page_view"
	SignalInviteAccept  TriggerSignal = "invite_accept"
	SignalInviteDecline TriggerSignal = "invite_decline"
)

var signalToEvent = map[TriggerSignal]outreach.EventType{
	SignalSent:          outreach.EventEmailSent,
	SignalOpen:          outreach.EventEmailOpened,
	SignalClick:         outreach.EventLinkClicked,
	SignalPageView:      outreach.EventLandingPageViewed,
	SignalInviteAccept:  outreach.EventInviteAccepted,
	SignalInviteDecline: outreach.EventInviteDeclined,
}

// AllSignals lists every accepted trigger signal.
func AllSignals() []TriggerSignal {
	return []TriggerSignal{SignalSent, SignalOpen, SignalClick, SignalPageView, SignalInviteAccept, SignalInviteDecline}
}

func ParseSignal(raw string) TriggerSignal {
	return TriggerSignal(strings.ToLower(strings.TrimSpace(raw)))
}

// CanonicalEvent maps a trigger signal into the canonical event vocabulary.
// It is total over TriggerSignal values: anything outside the table reports false.
func CanonicalEvent(sig TriggerSignal) (outreach.EventType, bool) {
	e, ok := signalToEvent[sig]
	return e, ok
}
