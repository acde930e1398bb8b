package problem

import (
	"encoding/json"
	"net/http"
)

// Details is an RFC 9457 style error payload returned by every handler.
type Details struct {
	Type   string  `json:"type,omitempty"`
	Title  string  `json:"title"`
	Status int     `json:"status"`
	Detail *string `json:"detail,omitempty"`
	// Reason carries a machine-readable rejection code for business rejections
	// (e.g. "unit_conflict") so clients never need to parse Detail.
	Reason string `json:"reason,omitempty"`
}

// Problem type URIs used across the API.
const (
	TypeValidation = "https://upkeep.dev/problems/validation-error"
	TypeNotFound   = "https://upkeep.dev/problems/not-found"
	TypeConflict   = "https://upkeep.dev/problems/conflict"
	TypeTransition = "https://upkeep.dev/problems/invalid-transition"
	TypeRejected   = "https://upkeep.dev/problems/rejected"
	TypeInternal   = "https://upkeep.dev/problems/internal-error"
)

// New builds a Details value with the detail string attached when non-empty.
func New(title, detail, problemType string, status int) Details {
	p := Details{Title: title, Status: status, Type: problemType}
	if detail != "" {
		p.Detail = &detail
	}
	return p
}

// Write serializes the problem to the response with the proper content type.
func Write(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
