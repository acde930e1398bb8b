package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upkeephq/upkeep/domains/requests/be/service"
	"github.com/upkeephq/upkeep/platform/go/problem"
)

// Handler exposes maintenance request lifecycle operations over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("requests service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the request endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/requests", h.submit)
	r.Get("/requests/{requestID}", h.get)
	r.Get("/tenants/{tenantID}/requests", h.listByTenant)
	r.Post("/requests/{requestID}/decline", h.decline)
	r.Post("/requests/{requestID}/completion", h.reportCompletion)
	r.Post("/requests/{requestID}/close", h.close)
}

type submitBody struct {
	PropertyID  uuid.UUID `json:"property_id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Urgency     string    `json:"urgency"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}

	req, decision, err := h.svc.Submit(r.Context(), service.SubmitInput{
		PropertyID:  body.PropertyID,
		TenantID:    body.TenantID,
		Title:       body.Title,
		Description: body.Description,
		Urgency:     service.ParseUrgency(body.Urgency),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !decision.Allowed {
		p := problem.New("Submission rejected", decision.Detail, problem.TypeRejected, http.StatusTooManyRequests)
		p.Reason = string(decision.Reason)
		problem.Write(w, p)
		return
	}

	writeJSON(w, http.StatusCreated, toAPIRequest(req))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	req, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIRequest(req))
}

func (h *Handler) listByTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		problem.Write(w, problem.New("Invalid tenant id", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	items, err := h.svc.ListByTenant(r.Context(), tenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]apiRequest, 0, len(items))
	for _, req := range items {
		out = append(out, toAPIRequest(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) decline(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	req, err := h.svc.Decline(r.Context(), id, body.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIRequest(req))
}

func (h *Handler) reportCompletion(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Success bool   `json:"success"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	req, err := h.svc.ReportCompletion(r.Context(), id, body.Success, body.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIRequest(req))
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	req, err := h.svc.Close(r.Context(), id, body.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIRequest(req))
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		problem.Write(w, problem.New("Invalid request id", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *service.TransitionError
	switch {
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.New("Not found", err.Error(), problem.TypeNotFound, http.StatusNotFound))
	case errors.As(err, &transition):
		problem.Write(w, problem.New("Invalid transition", err.Error(), problem.TypeTransition, http.StatusConflict))
	default:
		h.logger.Error("request operation failed", zap.Error(err))
		problem.Write(w, problem.New("Internal error", "", problem.TypeInternal, http.StatusInternalServerError))
	}
}

type apiRequest struct {
	ID              uuid.UUID  `json:"id"`
	PropertyID      uuid.UUID  `json:"property_id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Urgency         string     `json:"urgency"`
	Status          string     `json:"status"`
	WorkerEmail     *string    `json:"worker_email,omitempty"`
	ScheduledDate   *string    `json:"scheduled_date,omitempty"`
	WorkOrderNumber *string    `json:"work_order_number,omitempty"`
	CompletionNotes string     `json:"completion_notes,omitempty"`
	ClosureNotes    string     `json:"closure_notes,omitempty"`
	DeclineReason   string     `json:"decline_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toAPIRequest(req service.TenantRequest) apiRequest {
	out := apiRequest{
		ID:              req.ID,
		PropertyID:      req.PropertyID,
		TenantID:        req.TenantID,
		Title:           req.Title,
		Description:     req.Description,
		Urgency:         req.Urgency.String(),
		Status:          string(req.Status),
		WorkerEmail:     req.AssignedWorkerEmail,
		WorkOrderNumber: req.WorkOrderNumber,
		CompletionNotes: req.CompletionNotes,
		ClosureNotes:    req.ClosureNotes,
		DeclineReason:   req.DeclineReason,
		CreatedAt:       req.CreatedAt,
		UpdatedAt:       req.UpdatedAt,
	}
	if req.ScheduledDate != nil {
		d := req.ScheduledDate.Format("2006-01-02")
		out.ScheduledDate = &d
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
