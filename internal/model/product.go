package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Product represents one search result. Title is the only field that is
// guaranteed to be present; it doubles as the product's identity key
// (case-folded) in the session caches.
type Product struct {
	Title     string `json:"title"`
	Price     Number `json:"price,omitempty"`
	Rating    Number `json:"rating,omitempty"`
	Reviews   *int   `json:"reviews,omitempty"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Brand     string `json:"brand,omitempty"`
}

// Key returns the case-folded title used to key the product caches.
func (p Product) Key() string {
	return strings.ToLower(p.Title)
}

// Number is an optional numeric field that upstream sources may deliver as a
// JSON number, a numeric string, or null. Anything unparseable decodes as
// absent rather than failing the surrounding document.
type Number struct {
	value float64
	valid bool
}

// NewNumber returns a present Number holding v.
func NewNumber(v float64) Number {
	return Number{value: v, valid: true}
}

// Float returns the numeric value and whether it is present.
func (n Number) Float() (float64, bool) {
	return n.value, n.valid
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		str = strings.TrimSpace(strings.TrimPrefix(str, "$"))
		str = strings.ReplaceAll(str, ",", "")
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			n.value = v
			n.valid = true
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		n.value = v
		n.valid = true
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}
