package prompts

import (
	"fmt"
	"strings"
)

// Registry holds compiled templates by name.
type Registry struct {
	templates map[PromptName]Template
}

// NewRegistry compiles specs into a registry. With no specs it registers the
// built-in outreach prompts.
func NewRegistry(specs ...Spec) (*Registry, error) {
	if len(specs) == 0 {
		specs = builtin()
	}
	r := &Registry{templates: make(map[PromptName]Template, len(specs))}
	for _, s := range specs {
		t, err := MakeTemplate(s)
		if err != nil {
			return nil, err
		}
		r.templates[t.Name] = t
	}
	return r, nil
}

// Build renders the named prompt for in.
func (r *Registry) Build(name PromptName, in Input) (Prompt, error) {
	t, ok := r.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Validate != nil {
		if err := t.Validate(in); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	system, err := t.System(in)
	if err != nil {
		return Prompt{}, err
	}
	user, err := t.User(in)
	if err != nil {
		return Prompt{}, err
	}
	if t.Check != nil {
		if err := t.Check(in, system); err != nil {
			return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
		}
	}
	return Prompt{
		Name:       string(t.Name),
		Version:    t.Version,
		SchemaName: strings.TrimSpace(t.SchemaName),
		Schema:     t.Schema(),
		System:     system,
		User:       user,
	}, nil
}

func (r *Registry) Version(name PromptName) (int, bool) {
	t, ok := r.templates[name]
	return t.Version, ok
}
