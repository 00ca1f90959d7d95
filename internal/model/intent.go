package model

import "encoding/json"

// Turn-level actions produced by signal extraction.
const (
	ActionSearch  = "search"
	ActionCompare = "compare"
	ActionSort    = "sort"
	ActionRefine  = "refine"
)

// Sort preferences understood by the product search providers.
const (
	SortByPrice  = "price"
	SortByRating = "rating"
)

// IntentRecord is the structured output of text-signal extraction for one
// turn. Every field except Action is optional; absence means the turn said
// nothing about it, never a default value.
type IntentRecord struct {
	Action   string     `json:"action"`
	Category string     `json:"category,omitempty"`
	Brand    StringList `json:"brand,omitempty"`
	PriceMin Number     `json:"price_min,omitempty"`
	PriceMax Number     `json:"price_max,omitempty"`
	SortBy   string     `json:"sort_by,omitempty"`
	Features []string   `json:"features,omitempty"`
	Products []string   `json:"products,omitempty"`
	Intent   string     `json:"intent,omitempty"`
	Tone     string     `json:"tone,omitempty"`
}

// DefaultIntentRecord is the safe fallback when extraction fails: a plain
// search with every other field absent.
func DefaultIntentRecord() *IntentRecord {
	return &IntentRecord{Action: ActionSearch}
}

// StringList accepts a JSON string, an array of strings, or null. The
// extraction model returns either form for the brand field.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	*l = nil

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*l = StringList{single}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = StringList(many)
	}
	return nil
}

// Filters is the persistent per-session filter set passed to product search.
// Fields persist additively across turns: a later turn that omits a field
// never clears a previously set one.
type Filters struct {
	Brand    []string `json:"brand,omitempty"`
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
	Features []string `json:"features,omitempty"`
	SortBy   string   `json:"sort_by,omitempty"`
}
