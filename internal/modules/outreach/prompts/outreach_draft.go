package prompts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/outreach-backend/internal/modules/outreach/policy"
)

// ErrPolicyOmitted means a rendered system prompt lost a directive or strategy rule.
var ErrPolicyOmitted = errors.New("system prompt omits policy rules")

const outreachDraftSystem = `
You write first drafts of outreach emails to educational institutions. A person reviews
every draft before anything is sent.

GLOBAL DIRECTIVES
{{bullets .Directives}}

SAFETY BOUNDARIES
- The visible body text must stay under {{.MaxLength}} characters.
{{- if .ForbiddenPhrases}}
- Never use any of these phrases: {{join .ForbiddenPhrases "; "}}
{{- end}}
{{- if .TemplateForbidden}}
- This stage's template also forbids: {{join .TemplateForbidden "; "}}
{{- end}}

STRATEGY ({{.StrategyKey}}) for an institution in state {{.State}}
Goal: {{.Goal}}
{{- if .Must}}
You must:
{{bullets .Must}}
{{- end}}
{{- if .Avoid}}
You must avoid:
{{bullets .Avoid}}
{{- end}}
{{- if or .TemplateTone .TemplateTopics}}

TEMPLATE GUIDANCE (version {{.TemplateVersion}})
{{- if .TemplateTone}}
Tone: {{.TemplateTone}}
{{- end}}
{{- if .TemplateTopics}}
Reference topics: {{join .TemplateTopics "; "}}
{{- end}}
{{- end}}

OUTPUT
Return JSON with subject, preview_text, body_html (simple HTML paragraphs) and
sentiment_analysis (one sentence on the recipient's likely stance, or null).
`

const outreachDraftUser = `
Recipient: {{if .RecipientName}}{{.RecipientName}}{{else}}(name unknown){{end}}{{if .RecipientRole}}, {{.RecipientRole}}{{end}}
Institution: {{.InstitutionName}}
Current engagement state: {{.State}}
{{- if .TriggerEvent}}
Triggering event: {{.TriggerEvent}}
{{- end}}
{{- if .PayloadJSON}}
Event payload (JSON): {{.PayloadJSON}}
{{- end}}
{{- if .History}}

Interaction history (most recent first):
{{bullets .History}}
{{- end}}
{{- if .TemplateBody}}

Reference template for this stage:
Subject: {{.TemplateSubject}}
Preview: {{.TemplatePreview}}
Body:
{{.TemplateBody}}
{{- end}}
{{- if .Instructions}}

Operator instructions: {{.Instructions}}
{{- end}}
`

func outreachDraftSpec() Spec {
	return Spec{
		Name:       PromptOutreachDraft,
		Version:    2,
		SchemaName: policy.ResultSchemaName,
		Schema:     policy.ResultSchema,
		System:     outreachDraftSystem,
		User:       outreachDraftUser,
		Validators: []Validator{requirePolicy},
		Check:      checkPolicyIncluded,
	}
}

func builtin() []Spec {
	return []Spec{outreachDraftSpec()}
}

// checkPolicyIncluded verifies that every directive and strategy rule appears verbatim.
func checkPolicyIncluded(in Input, system string) error {
	required := make([]string, 0, len(in.Directives)+len(in.Must)+len(in.Avoid)+1)
	required = append(required, in.Directives...)
	required = append(required, in.Goal)
	required = append(required, in.Must...)
	required = append(required, in.Avoid...)
	for _, r := range required {
		if r == "" {
			continue
		}
		if !strings.Contains(system, r) {
			return fmt.Errorf("%w: %q", ErrPolicyOmitted, r)
		}
	}
	return nil
}
