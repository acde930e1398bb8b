package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upkeephq/upkeep/domains/workers/be/service"
	"github.com/upkeephq/upkeep/platform/go/problem"
)

// Handler exposes the worker directory over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("workers service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the worker endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/workers", h.create)
	r.Get("/workers", h.listActive)
	r.Get("/workers/{workerID}", h.get)
	r.Patch("/workers/{workerID}/specialization", h.changeSpecialization)
	r.Post("/workers/{workerID}/deactivate", h.deactivate)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		Phone          string `json:"phone"`
		Specialization string `json:"specialization"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	worker, err := h.svc.Create(r.Context(), service.CreateInput{
		Email:          body.Email,
		Name:           body.Name,
		Phone:          body.Phone,
		Specialization: body.Specialization,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIWorker(worker))
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	workers, err := h.svc.ListActive(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]apiWorker, 0, len(workers))
	for _, worker := range workers {
		items = append(items, toAPIWorker(worker))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.workerID(w, r)
	if !ok {
		return
	}
	worker, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIWorker(worker))
}

func (h *Handler) changeSpecialization(w http.ResponseWriter, r *http.Request) {
	id, ok := h.workerID(w, r)
	if !ok {
		return
	}
	var body struct {
		Specialization string `json:"specialization"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	worker, err := h.svc.ChangeSpecialization(r.Context(), id, body.Specialization)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIWorker(worker))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.workerID(w, r)
	if !ok {
		return
	}
	worker, err := h.svc.Deactivate(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIWorker(worker))
}

func (h *Handler) workerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "workerID"))
	if err != nil {
		problem.Write(w, problem.New("Invalid worker id", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		problem.Write(w, problem.New("Not found", err.Error(), problem.TypeNotFound, http.StatusNotFound))
	case errors.Is(err, service.ErrConflictEmail):
		problem.Write(w, problem.New("Conflict", err.Error(), problem.TypeConflict, http.StatusConflict))
	case errors.Is(err, service.ErrStaleWorker):
		problem.Write(w, problem.New("Conflict", err.Error(), problem.TypeConflict, http.StatusConflict))
	default:
		h.logger.Error("worker operation failed", zap.Error(err))
		problem.Write(w, problem.New("Internal error", "", problem.TypeInternal, http.StatusInternalServerError))
	}
}

type apiAssignment struct {
	RequestID    uuid.UUID `json:"request_id"`
	PropertyCode string    `json:"property_code"`
	UnitNumber   string    `json:"unit_number"`
	Date         string    `json:"date"`
	Status       string    `json:"status"`
}

type apiWorker struct {
	ID             uuid.UUID       `json:"id"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone,omitempty"`
	Specialization string          `json:"specialization"`
	Active         bool            `json:"active"`
	Assignments    []apiAssignment `json:"assignments"`
}

func toAPIWorker(w service.Worker) apiWorker {
	assignments := make([]apiAssignment, 0, len(w.Assignments))
	for _, a := range w.Assignments {
		assignments = append(assignments, apiAssignment{
			RequestID:    a.RequestID,
			PropertyCode: a.PropertyCode,
			UnitNumber:   a.UnitNumber,
			Date:         a.Date.Format("2006-01-02"),
			Status:       string(a.Status),
		})
	}
	return apiWorker{
		ID:             w.ID,
		Email:          w.Email,
		Name:           w.Name,
		Phone:          w.Phone,
		Specialization: w.Specialization.String(),
		Active:         w.Active,
		Assignments:    assignments,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
