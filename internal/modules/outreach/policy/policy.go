package policy

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

// DeclinedGoal is the only acceptable goal for institutions that declined.
const DeclinedGoal = "respect the decision and close the loop"

//go:embed policy.yaml
var policyFS embed.FS

// Strategy is the per-state instruction set rendered into the system prompt.
type Strategy struct {
	Goal  string   `yaml:"goal"`
	Must  []string `yaml:"must"`
	Avoid []string `yaml:"avoid"`
}

type Safety struct {
	MaxLength        int      `yaml:"max_length"`
	ForbiddenPhrases []string `yaml:"forbidden_phrases"`
}

// Policy is the content ruleset. Build it with Load or Parse and treat it as read-only.
type Policy struct {
	Name                   string                              `yaml:"policy"`
	Version                int                                 `yaml:"version"`
	GlobalDirectives       []string                            `yaml:"global_directives"`
	Safety                 Safety                              `yaml:"safety"`
	SalesyPhrases          []string                            `yaml:"salesy_phrases"`
	CounterArgumentPhrases []string                            `yaml:"counter_argument_phrases"`
	StateStrategy          map[outreach.EngagementState]string `yaml:"state_strategy"`
	Strategies             map[string]Strategy                 `yaml:"strategies"`
}

// Load reads the policy from path, or the embedded default when path is empty.
func Load(path string) (Policy, error) {
	var (
		data []byte
		err  error
	)
	if path = strings.TrimSpace(path); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = policyFS.ReadFile("policy.yaml")
	}
	if err != nil {
		return Policy{}, fmt.Errorf("read outreach policy: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded policy.
func Default() (Policy, error) { return Load("") }

func Parse(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse outreach policy: %w", err)
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p *Policy) normalize() {
	p.GlobalDirectives = trimAll(p.GlobalDirectives)
	p.Safety.ForbiddenPhrases = trimAll(p.Safety.ForbiddenPhrases)
	p.SalesyPhrases = trimAll(p.SalesyPhrases)
	p.CounterArgumentPhrases = trimAll(p.CounterArgumentPhrases)
	norm := make(map[outreach.EngagementState]string, len(p.StateStrategy))
	for st, key := range p.StateStrategy {
		norm[outreach.EngagementState(strings.ToUpper(strings.TrimSpace(string(st))))] = strings.TrimSpace(key)
	}
	p.StateStrategy = norm
	for key, s := range p.Strategies {
		s.Goal = strings.TrimSpace(s.Goal)
		s.Must = trimAll(s.Must)
		s.Avoid = trimAll(s.Avoid)
		p.Strategies[key] = s
	}
}

func (p Policy) Validate() error {
	if len(p.GlobalDirectives) == 0 {
		return errors.New("outreach policy: no global directives")
	}
	if p.Safety.MaxLength <= 0 {
		return errors.New("outreach policy: safety.max_length must be > 0")
	}
	for st := range p.StateStrategy {
		if !st.Valid() {
			return fmt.Errorf("outreach policy: unknown state %q", st)
		}
	}
	for _, st := range outreach.AllStates {
		key, ok := p.StateStrategy[st]
		if !ok || key == "" {
			return fmt.Errorf("outreach policy: state %s has no strategy", st)
		}
		s, ok := p.Strategies[key]
		if !ok {
			return fmt.Errorf("outreach policy: state %s maps to unknown strategy %q", st, key)
		}
		if s.Goal == "" {
			return fmt.Errorf("outreach policy: strategy %q has no goal", key)
		}
	}

	declined := p.Strategies[p.StateStrategy[outreach.StateDeclined]]
	if !strings.EqualFold(declined.Goal, DeclinedGoal) {
		return fmt.Errorf("outreach policy: DECLINED goal must be %q", DeclinedGoal)
	}
	if !forbidsCounterArguments(declined.Avoid) {
		return errors.New("outreach policy: DECLINED strategy must forbid counter-arguments")
	}
	if len(p.CounterArgumentPhrases) == 0 {
		return errors.New("outreach policy: counter_argument_phrases is empty")
	}
	return nil
}

// StrategyFor resolves the strategy key and rules for state.
func (p Policy) StrategyFor(state outreach.EngagementState) (string, Strategy, error) {
	key, ok := p.StateStrategy[state]
	if !ok {
		return "", Strategy{}, fmt.Errorf("outreach policy: no strategy for state %s", state)
	}
	s, ok := p.Strategies[key]
	if !ok {
		return "", Strategy{}, fmt.Errorf("outreach policy: unknown strategy %q", key)
	}
	return key, s, nil
}

// StrategyKeys lists the configured strategy keys in sorted order.
func (p Policy) StrategyKeys() []string {
	out := make([]string, 0, len(p.Strategies))
	for k := range p.Strategies {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func forbidsCounterArguments(avoid []string) bool {
	for _, rule := range avoid {
		r := strings.ToLower(rule)
		if strings.Contains(r, "counter-argument") || strings.Contains(r, "counter argument") || strings.Contains(r, "counterargument") {
			return true
		}
	}
	return false
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
