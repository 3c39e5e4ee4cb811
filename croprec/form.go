package croprec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field names one of the seven soil and climate measurements. The values are
// the literal keys the prediction service expects on the wire.
type Field string

const (
	FieldNitrogen    Field = "Nitrogen"
	FieldPhosphorus  Field = "Phosporus"
	FieldPotassium   Field = "Potassium"
	FieldTemperature Field = "Temperature"
	FieldHumidity    Field = "Humidity"
	FieldPh          Field = "Ph"
	FieldRainfall    Field = "Rainfall"
)

// Fields lists every measurement in form order.
var Fields = []Field{
	FieldNitrogen,
	FieldPhosphorus,
	FieldPotassium,
	FieldTemperature,
	FieldHumidity,
	FieldPh,
	FieldRainfall,
}

var fieldLabels = map[Field]string{
	FieldNitrogen:    "Nitrogen",
	FieldPhosphorus:  "Phosphorus",
	FieldPotassium:   "Potassium",
	FieldTemperature: "Temperature",
	FieldHumidity:    "Humidity",
	FieldPh:          "pH",
	FieldRainfall:    "Rainfall",
}

// Label is the human readable placeholder for the field.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Valid reports whether f is one of the seven known measurements.
func (f Field) Valid() bool {
	_, ok := fieldLabels[f]
	return ok
}

var (
	// ErrUnknownField is returned when a caller names a field outside Fields.
	ErrUnknownField = errors.New("unknown field")
	// ErrEmptyMeasurement is returned by ValidateMeasurement for blank input.
	ErrEmptyMeasurement = errors.New("value is required")
)

// FormData maps every measurement to the text the user typed.
type FormData map[Field]string

// NewFormData returns a form with all seven fields present and empty.
func NewFormData() FormData {
	f := make(FormData, len(Fields))
	for _, field := range Fields {
		f[field] = ""
	}
	return f
}

// Set overwrites a single field, leaving the others untouched.
func (f FormData) Set(name Field, value string) error {
	if !name.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(name))
	}
	f[name] = value
	return nil
}

// Get returns the current text of a field.
func (f FormData) Get(name Field) string {
	return f[name]
}

// Clone copies the form so it can be serialised outside a lock.
func (f FormData) Clone() FormData {
	out := make(FormData, len(Fields))
	for _, field := range Fields {
		out[field] = f[field]
	}
	return out
}

// Missing lists the fields that are still empty, in form order.
func (f FormData) Missing() []Field {
	var out []Field
	for _, field := range Fields {
		if f[field] == "" {
			out = append(out, field)
		}
	}
	return out
}

// Validate runs ValidateMeasurement over every field and returns the first
// failure annotated with the field label.
func (f FormData) Validate() error {
	for _, field := range Fields {
		if err := ValidateMeasurement(f[field]); err != nil {
			return fmt.Errorf("%s: %w", field.Label(), err)
		}
	}
	return nil
}

// MarshalJSON always writes the seven wire keys, even when empty. Values are
// sent as NormalizeNumber leaves them, the same text ValidateMeasurement
// checked.
func (f FormData) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(Fields))
	for _, field := range Fields {
		out[string(field)] = NormalizeNumber(f[field])
	}
	return json.Marshal(out)
}

// ValidateMeasurement accepts a finite decimal number, optionally signed and
// with an exponent. Full-width digits typed through an IME pass too, since
// they are folded before sending.
func ValidateMeasurement(value string) error {
	normalized := NormalizeNumber(value)
	if normalized == "" {
		return ErrEmptyMeasurement
	}
	if !isDecimalText(normalized) {
		return fmt.Errorf("%q is not a number", value)
	}
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%q is not a number", value)
	}
	return nil
}

// isDecimalText rejects the forms ParseFloat takes but the service does not,
// such as hex floats and digit separators.
func isDecimalText(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '+' || r == '-' || r == 'e' || r == 'E':
		default:
			return true
		}
		return false
	}) < 0
}
