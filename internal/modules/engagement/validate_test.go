package engagement

import (
	"errors"
	"testing"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

func TestValidateEvent(t *testing.T) {
	cases := []struct {
		name  string
		event outreach.EventType
		actor outreach.TriggeredBy
		want  error
	}{
		{"system signal", outreach.EventEmailOpened, outreach.TriggeredBySystem, nil},
		{"ai send", outreach.EventEmailSent, outreach.TriggeredByAI, nil},
		{"human manual", outreach.EventArchived, outreach.TriggeredByHuman, nil},
		{"human signal", outreach.EventInviteAccepted, outreach.TriggeredByHuman, nil},
		{"unknown event", outreach.EventType("EMAIL_BOUNCED"), outreach.TriggeredBySystem, ErrUnknownEvent},
		{"synthetic", outreach.EventStateChanged, outreach.TriggeredByHuman, ErrSyntheticEvent},
		{"unknown actor", outreach.EventEmailOpened, outreach.TriggeredBy("ROBOT"), ErrUnknownActor},
		{"manual by system", outreach.EventMarkedActive, outreach.TriggeredBySystem, ErrHumanOnly},
		{"manual by ai", outreach.EventReactivated, outreach.TriggeredByAI, ErrHumanOnly},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEvent(tc.event, tc.actor)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}
