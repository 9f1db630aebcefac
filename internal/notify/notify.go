// Package notify surfaces compile failures to the dashboard and guarantees that a
// failed compile never yields payloads for persistence.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/telemetry"
)

// Notification is one user-facing error message.
type Notification struct {
	ID        string             `json:"id"`
	Kind      compiler.ErrorKind `json:"kind"`
	Field     string             `json:"field,omitempty"`
	Message   string             `json:"message"`
	CreatedAt time.Time          `json:"created_at"`
}

// Sink delivers notifications somewhere the dashboard can see them.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Compiler is the subset of *compiler.Compiler the reporter wraps.
type Compiler interface {
	Compile(raw *compiler.RawConfiguration) ([]compiler.CompiledRequest, error)
}

// Reporter fans notifications out to its sinks. A failing sink does not stop
// delivery to the others.
type Reporter struct {
	sinks   []Sink
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewReporter returns a Reporter. metrics may be nil.
func NewReporter(metrics *telemetry.Metrics, sinks ...Sink) *Reporter {
	return &Reporter{sinks: sinks, metrics: metrics, now: time.Now}
}

// Report converts err into a Notification and delivers it. The first sink error,
// if any, is returned alongside the notification.
func (r *Reporter) Report(ctx context.Context, err error) (Notification, error) {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      compiler.KindOf(err),
		Field:     compiler.FieldOf(err),
		Message:   err.Error(),
		CreatedAt: r.now().UTC(),
	}
	var firstErr error
	for _, s := range r.sinks {
		if serr := s.Notify(ctx, n); serr != nil && firstErr == nil {
			firstErr = serr
		}
	}
	return n, firstErr
}

// Fail records err as a failed compile and reports it. It covers failures that
// happen before the compiler runs, such as an undecodable form body.
func (r *Reporter) Fail(ctx context.Context, err error) (Notification, error) {
	if r.metrics != nil {
		r.metrics.RecordCompile(string(compiler.KindOf(err)), nil, err)
	}
	return r.Report(ctx, err)
}

// Compile runs c on raw. On failure the error is reported, no requests are
// returned, and the notification is returned for the caller to echo.
func (r *Reporter) Compile(ctx context.Context, c Compiler, raw *compiler.RawConfiguration) ([]compiler.CompiledRequest, *Notification, error) {
	reqs, err := c.Compile(raw)
	if err != nil {
		n, _ := r.Fail(ctx, err)
		return nil, &n, err
	}
	if r.metrics != nil {
		providers := make([]string, len(reqs))
		for i, req := range reqs {
			providers[i] = req.Connection.Provider()
		}
		r.metrics.RecordCompile("", providers, nil)
	}
	return reqs, nil, nil
}
