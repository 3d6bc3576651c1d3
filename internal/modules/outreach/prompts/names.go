package prompts

type PromptName string

const (
	PromptOutreachDraft PromptName = "outreach_draft"
)
