package service

import "strings"

// Specialization classifies a worker's trade and a request's required trade.
// Values are normalized (trimmed, lower-cased) so comparisons never depend on
// caller formatting. The zero value means "unspecified".
type Specialization string

// Well-known specializations. The list is not closed; operators may introduce
// new values through configuration without touching this package.
const (
	General    Specialization = "general"
	Plumbing   Specialization = "plumbing"
	Electrical Specialization = "electrical"
	HVAC       Specialization = "hvac"
	Carpentry  Specialization = "carpentry"
	Painting   Specialization = "painting"
	Appliance  Specialization = "appliance"
)

// ParseSpecialization normalizes free-form input into a Specialization value.
func ParseSpecialization(s string) Specialization {
	return Specialization(strings.ToLower(strings.TrimSpace(s)))
}

// IsZero reports whether the specialization is unspecified.
func (s Specialization) IsZero() bool { return s == "" }

// CanHandle reports whether a worker with this specialization may take work
// requiring the given specialization. A generalist matches anything; an
// unspecified requirement matches anyone. This is the single matching
// predicate used by both the Worker aggregate and the validation engine.
func (s Specialization) CanHandle(required Specialization) bool {
	if required.IsZero() || s == General {
		return true
	}
	return s == required
}

func (s Specialization) String() string { return string(s) }

// InferenceRule maps a set of keywords to a specialization. Rules are applied
// in order with first match winning, so more specific categories must come
// before catch-alls.
type InferenceRule struct {
	Specialization Specialization
	Keywords       []string
}

// DefaultInferenceRules is the built-in keyword mapping used when operators
// have not supplied their own.
func DefaultInferenceRules() []InferenceRule {
	return []InferenceRule{
		{Plumbing, []string{"leak", "pipe", "drain", "faucet", "toilet", "water heater"}},
		{Electrical, []string{"outlet", "breaker", "wiring", "light switch", "power"}},
		{HVAC, []string{"heating", "cooling", "furnace", "thermostat", "air condition"}},
		{Appliance, []string{"fridge", "refrigerator", "dishwasher", "oven", "washer", "dryer"}},
		{Carpentry, []string{"door", "cabinet", "window frame", "floorboard"}},
		{Painting, []string{"paint", "wall stain", "ceiling stain"}},
	}
}

// InferSpecialization scans free text against the ordered rule list using
// case-insensitive substring containment. It returns General when nothing
// matches so a generalist can always be dispatched.
func InferSpecialization(rules []InferenceRule, text string) Specialization {
	lowered := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				return rule.Specialization
			}
		}
	}
	return General
}
