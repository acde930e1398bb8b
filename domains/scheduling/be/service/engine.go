package service

import (
	"fmt"
	"time"

	workersvc "github.com/upkeephq/upkeep/domains/workers/be/service"
	"github.com/upkeephq/upkeep/platform/go/clock"
)

// Per-worker-per-unit capacity. The emergency override buys exactly one extra
// slot; it never touches the worker's global per-day cap.
const (
	maxPerWorkerPerUnit          = 2
	maxPerWorkerPerUnitEmergency = 3
)

// ValidationReason tags why an assignment was refused. Ordered rule
// evaluation guarantees the first failing rule's reason is returned.
type ValidationReason string

const (
	ReasonNone                    ValidationReason = ""
	ReasonSpecializationMismatch  ValidationReason = "specialization_mismatch"
	ReasonUnitConflict            ValidationReason = "unit_conflict"
	ReasonWorkerUnitLimitExceeded ValidationReason = "worker_unit_limit_exceeded"
)

// PropertyAssignment is the engine's projection of one existing assignment in
// the property under consideration.
type PropertyAssignment struct {
	WorkerEmail string
	UnitNumber  string
	Date        time.Time
	Status      workersvc.AssignmentStatus
}

// ValidationInput is the candidate tuple plus the assignment snapshot the
// decision is made against.
type ValidationInput struct {
	WorkerEmail            string
	WorkerSpecialization   workersvc.Specialization
	RequiredSpecialization workersvc.Specialization
	PropertyCode           string
	UnitNumber             string
	Date                   time.Time
	Existing               []PropertyAssignment
	EmergencyOverride      bool
}

// ValidationResult is the structured admit/reject outcome.
type ValidationResult struct {
	Admitted bool
	Reason   ValidationReason
	Detail   string
}

func admitResult() ValidationResult {
	return ValidationResult{Admitted: true}
}

func rejectResult(reason ValidationReason, detail string) ValidationResult {
	return ValidationResult{Reason: reason, Detail: detail}
}

// ValidateAssignment decides whether a worker may be assigned to a unit on a
// date. Pure function of its input: same snapshot, same answer. Specialization
// is checked first, then unit exclusivity, then per-worker-per-unit capacity.
// Only non-terminal assignments count toward any rule.
//
// A worker holding assignments in several units of the property on the same
// day is valid here; that case is governed solely by the worker's global
// per-day cap, checked separately by the scheduler.
func ValidateAssignment(in ValidationInput) ValidationResult {
	if !in.WorkerSpecialization.CanHandle(in.RequiredSpecialization) {
		return rejectResult(ReasonSpecializationMismatch,
			fmt.Sprintf("worker is %s, request requires %s", in.WorkerSpecialization, in.RequiredSpecialization))
	}

	day := clock.DateOf(in.Date)
	ownCount := 0
	for _, a := range in.Existing {
		if !a.Status.Active() || a.UnitNumber != in.UnitNumber || !clock.DateOf(a.Date).Equal(day) {
			continue
		}
		if a.WorkerEmail != in.WorkerEmail {
			return rejectResult(ReasonUnitConflict,
				fmt.Sprintf("unit %s is already assigned to %s on %s", in.UnitNumber, a.WorkerEmail, day.Format("2006-01-02")))
		}
		ownCount++
	}

	limit := maxPerWorkerPerUnit
	if in.EmergencyOverride {
		limit = maxPerWorkerPerUnitEmergency
	}
	if ownCount >= limit {
		return rejectResult(ReasonWorkerUnitLimitExceeded,
			fmt.Sprintf("worker already has %d assignments in unit %s on %s (limit %d)",
				ownCount, in.UnitNumber, day.Format("2006-01-02"), limit))
	}

	return admitResult()
}
