package prompts

import (
	"fmt"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
	"github.com/yungbote/outreach-backend/internal/modules/outreach/policy"
)

// Input carries everything the outreach prompts can reference.
// Missing fields render empty (templates use missingkey=zero).
type Input struct {
	// Policy
	Directives       []string
	MaxLength        int
	ForbiddenPhrases []string
	StrategyKey      string
	Goal             string
	Must             []string
	Avoid            []string

	// Active template for the stage
	TemplateVersion   int
	TemplateTone      string
	TemplateTopics    []string
	TemplateForbidden []string
	TemplateSubject   string
	TemplatePreview   string
	TemplateBody      string

	// Context
	RecipientName   string
	RecipientRole   string
	InstitutionName string
	State           string
	TriggerEvent    string
	PayloadJSON     string
	History         []string
	Instructions    string
}

// ApplyPolicy copies the global directives, safety boundaries and the strategy for
// state into in.
func (in *Input) ApplyPolicy(p policy.Policy, state outreach.EngagementState) error {
	key, s, err := p.StrategyFor(state)
	if err != nil {
		return err
	}
	in.Directives = append([]string(nil), p.GlobalDirectives...)
	in.MaxLength = p.Safety.MaxLength
	in.ForbiddenPhrases = append([]string(nil), p.Safety.ForbiddenPhrases...)
	in.StrategyKey = key
	in.Goal = s.Goal
	in.Must = append([]string(nil), s.Must...)
	in.Avoid = append([]string(nil), s.Avoid...)
	in.State = string(state)
	return nil
}

// ApplyTemplate copies the reference content and AI instructions of t.
func (in *Input) ApplyTemplate(t *outreach.EmailTemplate) {
	if t == nil {
		return
	}
	ins := t.Instructions()
	in.TemplateVersion = t.Version
	in.TemplateTone = ins.Tone
	in.TemplateTopics = ins.ReferenceTopics
	in.TemplateForbidden = ins.ForbiddenPhrases
	in.TemplateSubject = t.Subject
	in.TemplatePreview = t.PreviewText
	in.TemplateBody = t.BodyHTML
}

func requirePolicy(in Input) error {
	if len(in.Directives) == 0 {
		return fmt.Errorf("missing global directives")
	}
	if in.Goal == "" {
		return fmt.Errorf("missing strategy goal")
	}
	return nil
}
