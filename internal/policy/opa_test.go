package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/config"
)

func testCfg() func() config.PolicyConfig {
	return func() config.PolicyConfig {
		return config.PolicyConfig{
			Enabled:           true,
			EvaluationTimeout: 100 * time.Millisecond,
		}
	}
}

const defaultPolicy = `
package aegis.admin

import rego.v1

default allow := true
default reason := ""

deny contains msg if {
	input.model.wildcard
	input.user.team != ""
	msg := "team keys cannot register wildcard routes"
}

allow := false if {
	count(deny) > 0
}

reason := concat("; ", deny) if {
	count(deny) > 0
}
`

func loadTestEvaluator(t *testing.T, policy string) *Evaluator {
	t.Helper()
	e := NewEvaluator(testCfg())
	require.NoError(t, e.LoadFromModules(map[string]string{"test.rego": policy}))
	return e
}

func wildcardRequest() compiler.CompiledRequest {
	return compiler.CompiledRequest{
		Name:       "openai/*",
		Connection: compiler.ConnectionParameters{"model": "openai/*", "custom_llm_provider": "openai"},
		Metadata:   compiler.ModelMetadata{},
	}
}

func TestNewSubmissionInput(t *testing.T) {
	req := compiler.CompiledRequest{
		Name:       "gpt-4-custom",
		Connection: compiler.ConnectionParameters{"model": "openai/gpt-4", "custom_llm_provider": "openai"},
		Metadata:   compiler.ModelMetadata{"team_id": "team-1"},
	}
	now := time.Date(2026, 3, 4, 13, 0, 0, 0, time.UTC)
	in := NewSubmissionInput(SubmissionUser{KeyID: "k1", Role: "admin"}, req, now)

	assert.Equal(t, "gpt-4-custom", in.Model.Name)
	assert.Equal(t, "openai/gpt-4", in.Model.Model)
	assert.Equal(t, "openai", in.Model.Provider)
	assert.False(t, in.Model.Wildcard)
	assert.Equal(t, "team-1", in.Model.TeamID)
	assert.Equal(t, 13, in.Time.Hour)
	assert.Equal(t, "Wednesday", in.Time.Day)

	assert.True(t, NewSubmissionInput(SubmissionUser{}, wildcardRequest(), now).Model.Wildcard,
		"provider/* is a wildcard route")
}

func TestEvaluator_AllowByDefault(t *testing.T) {
	e := loadTestEvaluator(t, defaultPolicy)

	d := e.CheckSubmission(context.Background(), SubmissionUser{KeyID: "k1", Role: "admin"}, wildcardRequest())
	assert.True(t, d.Allowed, d.Reason)
}

func TestEvaluator_DenyTeamWildcard(t *testing.T) {
	e := loadTestEvaluator(t, defaultPolicy)

	d := e.CheckSubmission(context.Background(), SubmissionUser{KeyID: "k1", Role: "admin", Team: "team-1"}, wildcardRequest())
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "wildcard")
}

func TestEvaluator_NoPoliciesLoaded_FailClosed(t *testing.T) {
	e := NewEvaluator(testCfg())

	allowed, _, _ := e.Evaluate(context.Background(), SubmissionInput{})
	assert.False(t, allowed)
	assert.False(t, e.CheckSubmission(context.Background(), SubmissionUser{}, wildcardRequest()).Allowed)
}

func TestEvaluator_DisabledAllows(t *testing.T) {
	e := NewEvaluator(func() config.PolicyConfig {
		return config.PolicyConfig{Enabled: false}
	})
	assert.False(t, e.Enabled())
	assert.True(t, e.CheckSubmission(context.Background(), SubmissionUser{}, wildcardRequest()).Allowed)
}

func TestEvaluator_CustomDenyAllPolicy(t *testing.T) {
	denyAll := `
package aegis.admin

import rego.v1

allow := false
reason := "all submissions denied"
`
	e := loadTestEvaluator(t, denyAll)

	allowed, reason, err := e.Evaluate(context.Background(), SubmissionInput{})
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, "all submissions denied", reason)
}

func TestEvaluator_LoadBundledPolicy(t *testing.T) {
	e := NewEvaluator(func() config.PolicyConfig {
		return config.PolicyConfig{Enabled: true, BundlePath: filepath.Join("..", "..", "configs", "policies")}
	})
	require.NoError(t, e.Load())

	viewer := e.CheckSubmission(context.Background(), SubmissionUser{KeyID: "k", Role: "viewer"}, wildcardRequest())
	assert.False(t, viewer.Allowed, "viewer keys cannot submit")

	crossTeam := compiler.CompiledRequest{
		Name:       "m",
		Connection: compiler.ConnectionParameters{"model": "openai/gpt-4"},
		Metadata:   compiler.ModelMetadata{"team_id": "team-2"},
	}
	d := e.CheckSubmission(context.Background(), SubmissionUser{KeyID: "k", Role: "admin", Team: "team-1"}, crossTeam)
	assert.False(t, d.Allowed, "cross-team registration")

	admin := e.CheckSubmission(context.Background(), SubmissionUser{KeyID: "k", Role: "admin"}, wildcardRequest())
	assert.True(t, admin.Allowed, admin.Reason)
}

func writePolicy(t *testing.T, path, src string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
}

func TestLoadRegoFiles(t *testing.T) {
	dir := t.TempDir()
	writePolicy(t, filepath.Join(dir, "a.rego"), "package a")
	writePolicy(t, filepath.Join(dir, "teams", "b.rego"), "package b")
	writePolicy(t, filepath.Join(dir, "a_test.rego"), "package a_test")
	writePolicy(t, filepath.Join(dir, "notes.txt"), "ignored")

	modules, err := LoadRegoFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"a.rego":       "package a",
		"teams/b.rego": "package b",
	}, modules)
}

func TestLoadRegoFiles_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "admin.rego")
	writePolicy(t, path, "package aegis.admin")

	modules, err := LoadRegoFiles(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"admin.rego": "package aegis.admin"}, modules)

	other := filepath.Join(t.TempDir(), "policy.json")
	writePolicy(t, other, "{}")
	_, err = LoadRegoFiles(other)
	assert.Error(t, err)
}

func TestLoadRegoFiles_MissingPath(t *testing.T) {
	_, err := LoadRegoFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
