// Package policy decides, per compiled request, whether a caller may register
// a model deployment.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/config"
)

const query = "[data.aegis.admin.allow, data.aegis.admin.reason]"

// SubmissionInput is the document OPA evaluates.
type SubmissionInput struct {
	User  SubmissionUser  `json:"user"`
	Model SubmissionModel `json:"model"`
	Time  SubmissionTime  `json:"time"`
}

type SubmissionUser struct {
	KeyID string `json:"key_id"`
	Role  string `json:"role"`
	Team  string `json:"team"`
}

type SubmissionModel struct {
	Name     string `json:"name"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
	Wildcard bool   `json:"wildcard"`
	TeamID   string `json:"team_id"`
}

type SubmissionTime struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// NewSubmissionInput describes req on behalf of user.
func NewSubmissionInput(user SubmissionUser, req compiler.CompiledRequest, now time.Time) SubmissionInput {
	team, _ := req.Metadata[compiler.FieldTeamID].(string)
	model := req.Connection.Model()
	return SubmissionInput{
		User: user,
		Model: SubmissionModel{
			Name:     req.Name,
			Model:    model,
			Provider: req.Connection.Provider(),
			Wildcard: strings.HasSuffix(model, "/*"),
			TeamID:   team,
		},
		Time: SubmissionTime{
			Hour: now.Hour(),
			Day:  now.Weekday().String(),
		},
	}
}

// Evaluator evaluates submission policies with OPA.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
}

// NewEvaluator creates a policy evaluator. Call Load() to compile policies.
func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles Rego modules from the bundle path.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	modules, err := LoadRegoFiles(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if len(modules) == 0 {
		slog.Warn("no rego files found", "path", cfg.BundlePath)
		return nil
	}
	if err := e.LoadFromModules(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules))
	return nil
}

// LoadFromModules compiles policies from provided module sources.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	opts := []func(*rego.Rego){rego.Query(query)}
	for name, src := range modules {
		opts = append(opts, rego.Module(name, src))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy against the given input.
func (e *Evaluator) Evaluate(ctx context.Context, input SubmissionInput) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		// fail closed
		return false, "no policies loaded", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = 100 * time.Millisecond
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %v", err), err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}
	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)
	return allowed, reason, nil
}

// Decision is the outcome of CheckSubmission.
type Decision struct {
	Allowed bool
	Reason  string
}

// CheckSubmission decides whether user may persist req. A disabled evaluator
// allows everything; evaluation errors deny.
func (e *Evaluator) CheckSubmission(ctx context.Context, user SubmissionUser, req compiler.CompiledRequest) Decision {
	if !e.Enabled() {
		return Decision{Allowed: true}
	}

	allowed, reason, err := e.Evaluate(ctx, NewSubmissionInput(user, req, time.Now().UTC()))
	if err != nil {
		slog.Error("policy evaluation failed", "error", err, "model_name", req.Name)
		return Decision{Reason: "policy evaluation failed: " + err.Error()}
	}
	if !allowed {
		return Decision{Reason: "denied by policy: " + reason}
	}
	return Decision{Allowed: true}
}
