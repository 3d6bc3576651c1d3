package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/outreach-backend/internal/domain/outreach"
)

func mustDefault(t *testing.T) Policy {
	t.Helper()
	p, err := Default()
	require.NoError(t, err)
	return p
}

func TestDefaultPolicyCoversEveryState(t *testing.T) {
	p := mustDefault(t)
	for _, st := range outreach.AllStates {
		key, s, err := p.StrategyFor(st)
		require.NoError(t, err, "state %s", st)
		assert.NotEmpty(t, key)
		assert.NotEmpty(t, s.Goal)
	}
	_, s, err := p.StrategyFor(outreach.StateDeclined)
	require.NoError(t, err)
	assert.Equal(t, DeclinedGoal, s.Goal)
	assert.True(t, forbidsCounterArguments(s.Avoid))
}

func TestParseRejectsDeclinedGoalDrift(t *testing.T) {
	raw, err := policyFS.ReadFile("policy.yaml")
	require.NoError(t, err)
	mutated := strings.Replace(string(raw), DeclinedGoal, "win them back", 1)
	_, err = Parse([]byte(mutated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DECLINED goal")
}

func TestParseRejectsMissingCounterArgumentRule(t *testing.T) {
	raw, err := policyFS.ReadFile("policy.yaml")
	require.NoError(t, err)
	mutated := strings.Replace(string(raw), "Any counter-argument, rebuttal or attempt to change the decision.", "Long paragraphs.", 1)
	_, err = Parse([]byte(mutated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counter-arguments")
}

func TestParseRejectsUnmappedState(t *testing.T) {
	raw, err := policyFS.ReadFile("policy.yaml")
	require.NoError(t, err)
	mutated := strings.Replace(string(raw), "  DORMANT: reactivation\n", "", 1)
	_, err = Parse([]byte(mutated))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DORMANT")
}

func TestLoadFromPath(t *testing.T) {
	raw, err := policyFS.ReadFile("policy.yaml")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(raw), "max_length: 1800", "max_length: 200", 1)), 0o600))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 200, p.Safety.MaxLength)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
