package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/af-corp/aegis-admin/internal/auth"
	"github.com/af-corp/aegis-admin/internal/compiler"
	"github.com/af-corp/aegis-admin/internal/config"
	"github.com/af-corp/aegis-admin/internal/httputil"
	"github.com/af-corp/aegis-admin/internal/notify"
	"github.com/af-corp/aegis-admin/internal/policy"
	"github.com/af-corp/aegis-admin/internal/providers"
	"github.com/af-corp/aegis-admin/internal/redact"
	"github.com/af-corp/aegis-admin/internal/store"
	"github.com/af-corp/aegis-admin/internal/telemetry"
	"github.com/af-corp/aegis-admin/internal/types"
)

const defaultNotificationLimit = 20

// Deps are the collaborators of Handler. Policy, Feed and Metrics may be nil.
type Deps struct {
	Providers *providers.Registry
	Reporter  *notify.Reporter
	Feed      notify.Feed
	Store     store.Store
	Policy    *policy.Evaluator
	Config    func() *config.Config
	Metrics   *telemetry.Metrics
}

// Handler holds dependencies for the admin HTTP handlers.
type Handler struct {
	compiler  *compiler.Compiler
	providers *providers.Registry
	reporter  *notify.Reporter
	feed      notify.Feed
	store     store.Store
	policy    *policy.Evaluator
	redactor  *redact.Redactor
	cfg       func() *config.Config
	metrics   *telemetry.Metrics
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		compiler:  compiler.New(d.Providers),
		providers: d.Providers,
		reporter:  d.Reporter,
		feed:      d.Feed,
		store:     d.Store,
		policy:    d.Policy,
		redactor:  redact.New(),
		cfg:       d.Config,
		metrics:   d.Metrics,
	}
}

// CompileModels handles POST /admin/v1/models/compile. It never persists.
func (h *Handler) CompileModels(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	reqs, ok := h.compile(w, r, reqID)
	if !ok {
		return
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, types.CompileResponse{
		RequestID: reqID,
		Count:     len(reqs),
		Requests:  h.redactor.Requests(reqs),
	})
}

// SubmitModels handles POST /admin/v1/models: compile, check policy for every
// request, then persist in mapping order until the first backend error.
func (h *Handler) SubmitModels(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	authInfo, ok := auth.AuthFromContext(r.Context())
	if !ok {
		httputil.WriteAuthError(w, reqID, "Not authenticated")
		return
	}

	reqs, ok := h.compile(w, r, reqID)
	if !ok {
		return
	}
	if len(reqs) == 0 {
		httputil.WriteBadRequestError(w, reqID, "Nothing to submit: no model mappings were provided")
		return
	}

	mode := h.cfg().Submit.Mode
	if mode == config.SubmitFirst && len(reqs) > 1 {
		slog.Warn("submit mode 'first': extra compiled requests dropped",
			"request_id", reqID,
			"compiled", len(reqs),
		)
		reqs = reqs[:1]
	}

	if h.policy != nil {
		user := policy.SubmissionUser{KeyID: authInfo.KeyID, Role: authInfo.Role, Team: authInfo.TeamID}
		for _, req := range reqs {
			d := h.policy.CheckSubmission(r.Context(), user, req)
			if h.metrics != nil {
				h.metrics.RecordPolicyDecision(d.Allowed)
			}
			if !d.Allowed {
				slog.Warn("submission denied by policy",
					"request_id", reqID,
					"key_id", authInfo.KeyID,
					"model_name", req.Name,
					"reason", d.Reason,
				)
				httputil.WriteForbiddenError(w, reqID, d.Reason)
				return
			}
		}
	}

	resp := types.SubmitResponse{
		RequestID:   reqID,
		Mode:        mode,
		Compiled:    len(reqs),
		Deployments: make([]types.DeploymentResult, 0, len(reqs)),
	}

	for _, req := range reqs {
		dep, err := h.persist(r.Context(), reqID, req)
		if err != nil {
			resp.Failed = submitFailure(req, err)
			httputil.WriteJSON(w, reqID, failureStatus(err), resp)
			return
		}
		resp.Deployments = append(resp.Deployments, types.DeploymentResult{
			ModelName: dep.Name,
			ModelID:   dep.ID,
			Backend:   dep.Backend,
			CreatedAt: dep.CreatedAt,
		})
	}

	slog.Info("models submitted",
		"request_id", reqID,
		"key_id", authInfo.KeyID,
		"mode", mode,
		"count", len(resp.Deployments),
	)
	httputil.WriteJSON(w, reqID, http.StatusCreated, resp)
}

// ListProviders handles GET /admin/v1/providers.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	httputil.WriteJSON(w, reqID, http.StatusOK, types.ProviderListResponse{
		Object: "list",
		Data:   h.providers.List(),
	})
}

// ListNotifications handles GET /admin/v1/notifications?limit=N.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")

	limit := int64(defaultNotificationLimit)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			httputil.WriteBadRequestError(w, reqID, "limit must be a positive integer")
			return
		}
		limit = n
	}

	items := []notify.Notification{}
	if h.feed != nil {
		var err error
		items, err = h.feed.Recent(r.Context(), limit)
		if err != nil {
			slog.Error("failed to read notifications", "request_id", reqID, "error", err)
			httputil.WriteServiceUnavailableError(w, reqID, "Notification feed unavailable")
			return
		}
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, types.NotificationListResponse{
		Object: "list",
		Data:   items,
	})
}

// compile decodes the form body and compiles it. On failure the response has
// been written.
func (h *Handler) compile(w http.ResponseWriter, r *http.Request, reqID string) ([]compiler.CompiledRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg().Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteBadRequestError(w, reqID, "Request body too large")
			return nil, false
		}
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return nil, false
	}
	defer r.Body.Close()

	raw, err := compiler.ParseRawConfiguration(body)
	if err != nil {
		n, _ := h.reporter.Fail(r.Context(), err)
		httputil.WriteCompileError(w, reqID, string(n.Kind), n.Field, n.Message)
		return nil, false
	}

	reqs, n, err := h.reporter.Compile(r.Context(), h.compiler, raw)
	if err != nil {
		slog.Info("compile rejected",
			"request_id", reqID,
			"kind", n.Kind,
			"field", n.Field,
			"notification_id", n.ID,
		)
		httputil.WriteCompileError(w, reqID, string(n.Kind), n.Field, n.Message)
		return nil, false
	}

	for _, req := range reqs {
		slog.Debug("compiled request",
			"request_id", reqID,
			"model_name", req.Name,
			"llm_params", h.redactor.Map(req.Connection),
			"model_info", req.Metadata,
		)
	}
	return reqs, true
}

func (h *Handler) persist(ctx context.Context, reqID string, req compiler.CompiledRequest) (*store.Deployment, error) {
	start := time.Now()
	dep, err := h.store.CreateModel(ctx, req)
	elapsed := float64(time.Since(start).Milliseconds())

	if h.metrics != nil {
		h.metrics.RecordSubmit(h.store.Backend(), submitStatus(err), elapsed)
	}
	if err != nil {
		slog.Error("model create failed",
			"request_id", reqID,
			"model_name", req.Name,
			"backend", h.store.Backend(),
			"error", err,
		)
		return nil, err
	}
	slog.Info("model created",
		"request_id", reqID,
		"model_name", req.Name,
		"model_id", dep.ID,
		"backend", dep.Backend,
		"duration_ms", elapsed,
	)
	return dep, nil
}

func submitStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if errors.Is(err, store.ErrCircuitOpen) {
		return "circuit_open"
	}
	var apiErr *store.APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	return "error"
}

func submitFailure(req compiler.CompiledRequest, err error) *types.SubmitFailure {
	f := &types.SubmitFailure{ModelName: req.Name, Message: err.Error()}
	var apiErr *store.APIError
	if errors.As(err, &apiErr) {
		f.StatusCode = apiErr.StatusCode
		f.Message = apiErr.Message
	}
	return f
}

func failureStatus(err error) int {
	if errors.Is(err, store.ErrCircuitOpen) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
