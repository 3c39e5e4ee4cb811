package croprec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// MaxRecommendations is how many ranked crops the prediction service returns.
const MaxRecommendations = 5

// Recommendation is a single crop suggested by the prediction service.
type Recommendation struct {
	Crop        string  `json:"crop"`
	Probability float64 `json:"probability"`
}

// Label renders the recommendation the way the result list shows it.
func (r Recommendation) Label() string {
	return fmt.Sprintf("%s (Probability: %s)", r.Crop, formatProbability(r.Probability))
}

// formatProbability renders p with two decimals, rounding the exact binary
// value half away from zero. 0.125 gives "0.13" and 1.005, stored just below
// the tie, gives "1.00".
func formatProbability(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return strconv.FormatFloat(p, 'f', 2, 64)
	}
	x := new(big.Float).SetPrec(256).SetFloat64(math.Abs(p))
	x.Mul(x, big.NewFloat(100))
	x.Add(x, big.NewFloat(0.5))
	cents, _ := x.Int(nil)
	digits := cents.String()
	for len(digits) < 3 {
		digits = "0" + digits
	}
	out := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if p < 0 && cents.Sign() != 0 {
		out = "-" + out
	}
	return out
}

// Prediction is a decoded response of the prediction endpoint.
type Prediction struct {
	Crops      []Recommendation
	DocumentID TrackingID
}

// TrackingID is the opaque document identifier returned with a prediction.
// The raw JSON value is kept so it can be sent back byte-for-byte.
type TrackingID struct {
	raw json.RawMessage
}

// NewTrackingID wraps a string identifier.
func NewTrackingID(id string) TrackingID {
	raw, _ := json.Marshal(id)
	return TrackingID{raw: raw}
}

// RawTrackingID wraps an already encoded JSON value such as `42` or `"abc"`.
func RawTrackingID(raw []byte) (TrackingID, error) {
	var id TrackingID
	if err := id.UnmarshalJSON(raw); err != nil {
		return TrackingID{}, err
	}
	return id, nil
}

// IsZero reports whether no identifier is held.
func (t TrackingID) IsZero() bool {
	return len(t.raw) == 0
}

// Empty reports whether no usable identifier is held: absent, or one of the
// falsy JSON values "", 0 and false, none of which addresses a stored
// prediction.
func (t TrackingID) Empty() bool {
	if t.IsZero() {
		return true
	}
	var v any
	if err := json.Unmarshal(t.raw, &v); err != nil {
		return true
	}
	switch v := v.(type) {
	case string:
		return v == ""
	case float64:
		return v == 0
	case bool:
		return !v
	}
	return false
}

// String returns the identifier for display. Strings are unquoted, any other
// JSON value is returned as written.
func (t TrackingID) String() string {
	if t.IsZero() {
		return ""
	}
	var s string
	if err := json.Unmarshal(t.raw, &s); err == nil {
		return s
	}
	return string(t.raw)
}

// MarshalJSON emits the identifier exactly as it was received.
func (t TrackingID) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return append([]byte(nil), t.raw...), nil
}

// UnmarshalJSON keeps a copy of the raw value. JSON null clears the identifier.
func (t *TrackingID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		t.raw = nil
		return nil
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("invalid document id %q", string(trimmed))
	}
	t.raw = append(json.RawMessage(nil), trimmed...)
	return nil
}

type predictResponse struct {
	Top5Crops  []Recommendation `json:"top_5_crops"`
	DocumentID TrackingID       `json:"document_id"`
}

// SaveRequest is the body of the selection-persistence call.
type SaveRequest struct {
	SelectedCrops []string   `json:"selected_crops"`
	DocumentID    TrackingID `json:"document_id"`
}

// SaveResponse is the body returned by the selection-persistence call.
type SaveResponse struct {
	Message string `json:"message"`
}
