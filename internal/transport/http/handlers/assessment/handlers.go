package assessmenthandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"assessments/internal/domain/assessment"
	"assessments/internal/domain/audit"
	"assessments/internal/domain/auth"
	"assessments/internal/platform/metrics"
	"assessments/internal/transport/http/api"
	"assessments/internal/transport/http/middleware"
	"assessments/internal/transport/http/shared"
)

type AuditRecorder interface {
	Record(ctx context.Context, evt audit.Event) error
}

type Handler struct {
	Service *assessment.Service
	Perms   middleware.PermissionStore
	Audit   AuditRecorder
	Metrics *metrics.Collector
}

func NewHandler(service *assessment.Service, perms middleware.PermissionStore, auditSvc AuditRecorder, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/assessment-processes", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermProcessRead, h.Perms)).Get("/", h.handleListProcesses)
		r.With(middleware.RequirePermission(auth.PermProcessCreate, h.Perms)).Post("/", h.handleCreateProcess)
		r.With(middleware.RequirePermission(auth.PermProcessRead, h.Perms)).Get("/{processID}", h.handleGetProcess)
		r.With(middleware.RequirePermission(auth.PermProcessRead, h.Perms)).Get("/{processID}/history", h.handleListHistory)
		// Capability for a transition depends on the edge; the lifecycle policy decides.
		r.With(middleware.RequireUser).Post("/{processID}/status", h.handleTransition)
	})
}

type processResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Status    assessment.Status   `json:"status"`
	Active    bool                `json:"active"`
	StartDate string              `json:"startDate"`
	EndDate   string              `json:"endDate"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Next      []assessment.Status `json:"nextStatuses"`
}

func toProcessResponse(p assessment.Process) processResponse {
	next := []assessment.Status{}
	if status, ok := p.Status.Next(); ok {
		next = append(next, status)
	}
	return processResponse{
		ID:        p.ID,
		Name:      p.Name,
		Status:    p.Status,
		Active:    p.Active,
		StartDate: shared.FormatDate(p.StartDate),
		EndDate:   shared.FormatDate(p.EndDate),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Next:      next,
	}
}

type transitionResponse struct {
	ID             string            `json:"id"`
	Status         assessment.Status `json:"status"`
	PreviousStatus assessment.Status `json:"previousStatus"`
	ChangedAt      time.Time         `json:"changedAt"`
}

func (h *Handler) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, assessment.DefaultListLimit, 100)

	filter := assessment.ListFilter{Status: assessment.Status(r.URL.Query().Get("status"))}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "active must be true or false", requestID)
			return
		}
		filter.Active = &active
	}

	result, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items := make([]processResponse, 0, len(result.Items))
	for _, p := range result.Items {
		items = append(items, toProcessResponse(p))
	}
	api.Success(w, map[string]any{
		"items":  items,
		"total":  result.Total,
		"limit":  page.Limit,
		"offset": page.Offset,
	}, requestID)
}

func (h *Handler) handleCreateProcess(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		Name      string `json:"name" validate:"required,max=200"`
		StartDate string `json:"startDate" validate:"required"`
		EndDate   string `json:"endDate" validate:"required"`
	}
	if !decodePayload(w, r, &payload, requestID) {
		return
	}

	v := shared.NewValidator()
	v.Struct(payload)
	var startDate, endDate time.Time
	if payload.StartDate != "" {
		startDate, _ = v.Date("startDate", payload.StartDate)
	}
	if payload.EndDate != "" {
		endDate, _ = v.Date("endDate", payload.EndDate)
	}
	v.DateOrder("startDate", startDate, "endDate", endDate)
	if v.Reject(w, requestID) {
		return
	}

	process, err := h.Service.Create(r.Context(), payload.Name, startDate, endDate, actorFromUser(user))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.recordAudit(r, user, audit.ActionProcessCreate, process.ID, nil, toProcessResponse(process))
	api.Created(w, map[string]string{"id": process.ID}, requestID)
}

func (h *Handler) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	process, err := h.Service.Get(r.Context(), chi.URLParam(r, "processID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	api.Success(w, toProcessResponse(process), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.History(r.Context(), chi.URLParam(r, "processID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []assessment.HistoryEntry{}
	}
	api.Success(w, entries, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	processID := chi.URLParam(r, "processID")

	var payload struct {
		Status         string `json:"status" validate:"required"`
		ExpectedStatus string `json:"expectedStatus"`
	}
	if !decodePayload(w, r, &payload, requestID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, requestID) {
		return
	}

	expected := assessment.Status(payload.ExpectedStatus)
	if expected == "" {
		current, err := h.Service.Get(r.Context(), processID)
		if err != nil {
			h.recordOutcome(err)
			h.writeError(w, r, err)
			return
		}
		expected = current.Status
	}

	result, err := h.Service.Transition(r.Context(), processID, expected, assessment.Status(payload.Status), actorFromUser(user))
	h.recordOutcome(err)
	if err != nil {
		if errors.Is(err, assessment.ErrStaleState) || errors.Is(err, assessment.ErrInvalidTransition) || errors.Is(err, assessment.ErrUnauthorized) {
			slog.Info("assessment transition rejected", "processId", processID, "userId", user.UserID, "requested", payload.Status, "err", err)
		}
		h.writeError(w, r, err)
		return
	}

	resp := transitionResponse{
		ID:             result.ProcessID,
		Status:         result.Status,
		PreviousStatus: result.PreviousStatus,
		ChangedAt:      result.Entry.ChangedAt,
	}
	h.recordAudit(r, user, audit.ActionProcessTransition, processID,
		map[string]any{"status": result.PreviousStatus},
		map[string]any{"status": result.Status, "changedAt": result.Entry.ChangedAt},
	)
	api.Success(w, resp, requestID)
}

func decodePayload(w http.ResponseWriter, r *http.Request, dst any, requestID string) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", requestID)
		return false
	}
	api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
	return false
}

func actorFromUser(user auth.UserContext) assessment.Actor {
	return assessment.Actor{ID: user.UserID, Name: user.DisplayName(), Role: user.RoleName}
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	err := h.Audit.Record(r.Context(), audit.Event{
		ActorID:    user.UserID,
		Action:     action,
		EntityType: audit.EntityProcess,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         middleware.ClientIP(r),
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) recordOutcome(err error) {
	outcome := metrics.OutcomeApplied
	switch {
	case err == nil:
	case errors.Is(err, assessment.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case errors.Is(err, assessment.ErrStaleState):
		outcome = metrics.OutcomeStaleState
	case errors.Is(err, assessment.ErrInvalidTransition):
		outcome = metrics.OutcomeInvalidTransition
	case errors.Is(err, assessment.ErrUnauthorized):
		outcome = metrics.OutcomeUnauthorized
	default:
		outcome = metrics.OutcomePersistence
	}
	h.Metrics.RecordTransition(outcome)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, assessment.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "assessment process not found", requestID)
	case errors.Is(err, assessment.ErrUnauthorized):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to perform this transition", requestID)
	case errors.Is(err, assessment.ErrStaleState):
		api.Fail(w, http.StatusConflict, "stale_state", "process status changed; refresh and retry", requestID)
	case errors.Is(err, assessment.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, assessment.ErrInvalidProcess):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	case errors.Is(err, context.Canceled):
		api.Fail(w, http.StatusServiceUnavailable, "request_cancelled", "request cancelled", requestID)
	default:
		slog.Error("assessment storage failure", "path", r.URL.Path, "requestId", requestID, "err", err)
		w.Header().Set("Retry-After", "1")
		api.Fail(w, http.StatusServiceUnavailable, "persistence_failure", "temporary storage failure; retry later", requestID)
	}
}
