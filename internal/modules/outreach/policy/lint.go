package policy

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

var (
	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// LintInput is a generated draft plus the context it was generated for.
type LintInput struct {
	State       outreach.EngagementState
	Subject     string
	PreviewText string
	BodyHTML    string
	// TemplateForbidden are extra forbidden phrases from the stage's active template.
	TemplateForbidden []string
}

// Lint returns the policy flags raised by in. Flags never block storage; they are
// surfaced to the reviewer, who must acknowledge them before approving.
func (p Policy) Lint(in LintInput) []string {
	text := strings.ToLower(strings.Join([]string{in.Subject, in.PreviewText, PlainText(in.BodyHTML)}, "\n"))
	var flags []string
	add := func(f string) {
		for _, have := range flags {
			if have == f {
				return
			}
		}
		flags = append(flags, f)
	}

	if containsAny(text, p.Safety.ForbiddenPhrases) {
		add(outreach.FlagForbiddenPhrase)
	}
	if containsAny(text, in.TemplateForbidden) {
		add(outreach.FlagTemplateForbiddenPhrase)
	}
	if p.Safety.MaxLength > 0 && utf8.RuneCountInString(PlainText(in.BodyHTML)) > p.Safety.MaxLength {
		add(outreach.FlagExceedsMaxLength)
	}
	if containsAny(text, p.SalesyPhrases) {
		add(outreach.FlagPossiblyTooSalesy)
	}
	if in.State == outreach.StateDeclined && containsAny(text, p.CounterArgumentPhrases) {
		add(outreach.FlagCounterArgumentDecline)
	}
	return flags
}

// PlainText strips markup from an HTML body and collapses whitespace.
func PlainText(body string) string {
	s := tagRe.ReplaceAllString(body, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func containsAny(text string, phrases []string) bool {
	for _, ph := range phrases {
		ph = strings.ToLower(strings.TrimSpace(ph))
		if ph != "" && strings.Contains(text, ph) {
			return true
		}
	}
	return false
}
