package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	requestsvc "github.com/upkeephq/upkeep/domains/requests/be/service"
	"github.com/upkeephq/upkeep/domains/scheduling/be/service"
	workersvc "github.com/upkeephq/upkeep/domains/workers/be/service"
	"github.com/upkeephq/upkeep/platform/go/clock"
	"github.com/upkeephq/upkeep/platform/go/problem"
)

const defaultHorizonDays = 14

// Handler exposes scheduling operations: candidate ranking and assignment.
type Handler struct {
	scheduler *service.Scheduler
	clk       clock.Clock
	logger    *zap.Logger
}

// New constructs a Handler instance.
func New(scheduler *service.Scheduler, clk clock.Clock, logger *zap.Logger) *Handler {
	if scheduler == nil {
		panic("scheduler is required")
	}
	if clk == nil {
		panic("clock is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{scheduler: scheduler, clk: clk, logger: logger}
}

// Routes mounts the scheduling endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/scheduling/candidates", h.candidates)
	r.Post("/scheduling/assignments", h.schedule)
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from := h.clk.Today()
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			problem.Write(w, problem.New("Invalid from date", err.Error(), problem.TypeValidation, http.StatusBadRequest))
			return
		}
		from = parsed
	}

	horizon := defaultHorizonDays
	if raw := q.Get("horizon_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			problem.Write(w, problem.New("Invalid horizon", "horizon_days must be a positive integer", problem.TypeValidation, http.StatusBadRequest))
			return
		}
		horizon = parsed
	}

	emergency := q.Get("emergency") == "true"

	ranked, err := h.scheduler.RankCandidates(r.Context(), q.Get("specialization"), from, horizon, emergency)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]apiCandidate, 0, len(ranked))
	for _, c := range ranked {
		items = append(items, toAPICandidate(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type scheduleBody struct {
	RequestID         uuid.UUID `json:"request_id"`
	WorkerEmail       string    `json:"worker_email"`
	PropertyCode      string    `json:"property_code"`
	UnitNumber        string    `json:"unit_number"`
	ScheduledDate     string    `json:"scheduled_date"`
	WorkOrderNumber   string    `json:"work_order_number"`
	Specialization    string    `json:"specialization"`
	EmergencyOverride bool      `json:"emergency_override"`
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	var body scheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		problem.Write(w, problem.New("Invalid request body", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}
	date, err := time.Parse("2006-01-02", body.ScheduledDate)
	if err != nil {
		problem.Write(w, problem.New("Invalid scheduled date", err.Error(), problem.TypeValidation, http.StatusBadRequest))
		return
	}

	outcome, err := h.scheduler.ScheduleRequest(r.Context(), service.ScheduleCommand{
		RequestID:              body.RequestID,
		WorkerEmail:            body.WorkerEmail,
		PropertyCode:           body.PropertyCode,
		UnitNumber:             body.UnitNumber,
		ScheduledDate:          date,
		WorkOrderNumber:        body.WorkOrderNumber,
		RequiredSpecialization: body.Specialization,
		EmergencyOverride:      body.EmergencyOverride,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !outcome.Scheduled {
		reason := string(outcome.Validation.Reason)
		detail := outcome.Validation.Detail
		if outcome.DayCapExceeded {
			reason = "worker_day_limit_exceeded"
			detail = "worker has reached the per-day assignment cap"
		}
		p := problem.New("Assignment rejected", detail, problem.TypeRejected, http.StatusUnprocessableEntity)
		p.Reason = reason
		problem.Write(w, p)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"request_id":     outcome.Request.ID,
		"status":         string(outcome.Request.Status),
		"worker_email":   outcome.Request.AssignedWorkerEmail,
		"scheduled_date": outcome.Request.ScheduledDate.Format("2006-01-02"),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var transition *requestsvc.TransitionError
	switch {
	case errors.Is(err, requestsvc.ErrNotFound), errors.Is(err, workersvc.ErrNotFound):
		problem.Write(w, problem.New("Not found", err.Error(), problem.TypeNotFound, http.StatusNotFound))
	case errors.As(err, &transition):
		problem.Write(w, problem.New("Invalid transition", err.Error(), problem.TypeTransition, http.StatusConflict))
	case errors.Is(err, requestsvc.ErrInvalidSchedule):
		problem.Write(w, problem.New("Invalid schedule", err.Error(), problem.TypeValidation, http.StatusUnprocessableEntity))
	case errors.Is(err, workersvc.ErrWorkerInactive):
		problem.Write(w, problem.New("Worker inactive", err.Error(), problem.TypeValidation, http.StatusUnprocessableEntity))
	case errors.Is(err, service.ErrConcurrentUpdate):
		problem.Write(w, problem.New("Conflict", err.Error(), problem.TypeConflict, http.StatusConflict))
	default:
		h.logger.Error("scheduling operation failed", zap.Error(err))
		problem.Write(w, problem.New("Internal error", "", problem.TypeInternal, http.StatusInternalServerError))
	}
}

type apiCandidate struct {
	Email                string   `json:"email"`
	Name                 string   `json:"name"`
	Specialization       string   `json:"specialization"`
	BookedDates          []string `json:"booked_dates"`
	PartiallyBookedDates []string `json:"partially_booked_dates"`
	NextAvailableDate    *string  `json:"next_available_date"`
	RankingScore         int      `json:"ranking_score"`
}

func toAPICandidate(c service.WorkerAvailability) apiCandidate {
	out := apiCandidate{
		Email:                c.Email,
		Name:                 c.Name,
		Specialization:       c.Specialization.String(),
		BookedDates:          formatDates(c.BookedDates),
		PartiallyBookedDates: formatDates(c.PartiallyBookedDates),
		RankingScore:         c.RankingScore,
	}
	if c.NextAvailableDate != nil {
		d := c.NextAvailableDate.Format("2006-01-02")
		out.NextAvailableDate = &d
	}
	return out
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
