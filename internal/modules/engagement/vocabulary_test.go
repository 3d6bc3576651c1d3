package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

func TestCanonicalEventCoversEverySignal(t *testing.T) {
	seen := map[outreach.EventType]bool{}
	for _, sig := range AllSignals() {
		e, ok := CanonicalEvent(sig)
		require.True(t, ok, "signal %s has no canonical event", sig)
		assert.True(t, e.Valid(), "signal %s maps to unknown event %s", sig, e)
		assert.NotEqual(t, outreach.EventStateChanged, e)
		assert.False(t, IsManualTransition(e), "signal %s must not map to a human-only event", sig)
		assert.False(t, seen[e], "event %s mapped twice", e)
		seen[e] = true
	}
}

func TestCanonicalEventRejectsUnknown(t *testing.T) {
	_, ok := CanonicalEvent(ParseSignal("bounce"))
	assert.False(t, ok)

	e, ok := CanonicalEvent(ParseSignal("  Page_View "))
	require.True(t, ok)
	assert.Equal(t, outreach.EventLandingPageViewed, e)
}
