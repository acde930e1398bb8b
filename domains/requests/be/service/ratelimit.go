package service

import (
	"fmt"
	"time"
)

// RateLimitConfig bounds tenant submissions. It is loaded once at process
// start and passed by value into every evaluation, so tests can vary
// thresholds freely.
type RateLimitConfig struct {
	// MaxPendingRequests caps requests in any non-terminal status.
	MaxPendingRequests int
	// MinHoursBetweenSubmissions is the minimum gap since the tenant's newest
	// request. Zero disables the check.
	MinHoursBetweenSubmissions int
	// MaxEmergencyPerWindow caps emergency submissions inside the rolling
	// lookback window.
	MaxEmergencyPerWindow int
	// LookbackDays is the length of the rolling window for the emergency cap.
	LookbackDays int
}

// DefaultRateLimitConfig mirrors production defaults.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPendingRequests:         5,
		MinHoursBetweenSubmissions: 1,
		MaxEmergencyPerWindow:      3,
		LookbackDays:               30,
	}
}

// SubmissionReason tags why a submission was refused.
type SubmissionReason string

const (
	SubmissionOK              SubmissionReason = ""
	ReasonTooManyPending      SubmissionReason = "too_many_pending"
	ReasonTooSoon             SubmissionReason = "too_soon"
	ReasonEmergencyQuotaSpent SubmissionReason = "emergency_quota_exhausted"
)

// SubmissionDecision is the structured outcome of the rate-limit policy.
type SubmissionDecision struct {
	Allowed bool
	Reason  SubmissionReason
	Detail  string
}

func admit() SubmissionDecision {
	return SubmissionDecision{Allowed: true}
}

func refuse(reason SubmissionReason, detail string) SubmissionDecision {
	return SubmissionDecision{Reason: reason, Detail: detail}
}

// EvaluateSubmission applies the submission rate-limit policy to a tenant's
// existing requests. Pure: the caller creates the request only after
// admission. Checks run in a fixed order and the first violation wins.
func EvaluateSubmission(existing []TenantRequest, urgency Urgency, cfg RateLimitConfig, now time.Time) SubmissionDecision {
	pending := 0
	var newest time.Time
	for _, r := range existing {
		if r.Status.Pending() {
			pending++
		}
		if r.CreatedAt.After(newest) {
			newest = r.CreatedAt
		}
	}

	if cfg.MaxPendingRequests > 0 && pending >= cfg.MaxPendingRequests {
		return refuse(ReasonTooManyPending,
			fmt.Sprintf("tenant already has %d pending requests (limit %d)", pending, cfg.MaxPendingRequests))
	}

	if cfg.MinHoursBetweenSubmissions > 0 && !newest.IsZero() {
		gap := time.Duration(cfg.MinHoursBetweenSubmissions) * time.Hour
		if now.Sub(newest) < gap {
			return refuse(ReasonTooSoon,
				fmt.Sprintf("last submission was less than %dh ago", cfg.MinHoursBetweenSubmissions))
		}
	}

	if urgency == UrgencyEmergency && cfg.MaxEmergencyPerWindow > 0 {
		windowStart := now.AddDate(0, 0, -cfg.LookbackDays)
		emergencies := 0
		for _, r := range existing {
			if r.Urgency == UrgencyEmergency && !r.CreatedAt.Before(windowStart) {
				emergencies++
			}
		}
		if emergencies >= cfg.MaxEmergencyPerWindow {
			return refuse(ReasonEmergencyQuotaSpent,
				fmt.Sprintf("%d emergency requests in the last %d days (limit %d)",
					emergencies, cfg.LookbackDays, cfg.MaxEmergencyPerWindow))
		}
	}

	return admit()
}
