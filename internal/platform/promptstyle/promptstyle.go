package promptstyle

import "strings"

const marker = "OUTREACH_PROMPT_STYLE_V1"

// ApplySystem prepends a short output-discipline block to a system prompt.
// The original prompt is kept verbatim after the separator.
func ApplySystem(system string, mode string) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}
	mode = strings.ToLower(strings.TrimSpace(mode))

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nFollow the system and user instructions precisely.")
	b.WriteString("\nUse only the facts in the inputs; do not invent names, numbers or commitments.")
	if mode == "json" {
		b.WriteString("\nReturn a single JSON object that conforms to the schema and contains no extra keys.")
	} else {
		b.WriteString("\nDo not add commentary outside the requested output.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}
