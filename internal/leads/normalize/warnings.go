package normalize

import (
	"fmt"
	"strings"
	"time"
)

// Warning records a field whose input was coerced to a default.
type Warning struct {
	Field string `json:"field"`
	Input string `json:"input"`
}

// Warnings accumulates coercions during one write. The methods wrap the
// package normalizers and record a warning whenever they coerce.
type Warnings []Warning

func (w *Warnings) Money(field string, raw any) float64 {
	v, coerced := Money(raw)
	w.note(coerced, field, raw)
	return v
}

func (w *Warnings) Date(field string, raw any, fallback DateFallback, today time.Time) *time.Time {
	v, coerced := Date(raw, fallback, today)
	w.note(coerced, field, raw)
	return v
}

func (w *Warnings) Bool(field string, raw any) bool {
	v, coerced := Bool(raw)
	w.note(coerced, field, raw)
	return v
}

// Add records a coercion detected by the caller.
func (w *Warnings) Add(field string, raw any) {
	w.note(true, field, raw)
}

func (w *Warnings) note(coerced bool, field string, raw any) {
	if coerced && w != nil {
		*w = append(*w, Warning{Field: field, Input: inputString(raw)})
	}
}

// Fields lists the coerced field names.
func (w Warnings) Fields() []string {
	out := make([]string, 0, len(w))
	for _, item := range w {
		out = append(out, item.Field)
	}
	return out
}

func inputString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case *string:
		if t == nil {
			return ""
		}
		return strings.TrimSpace(*t)
	default:
		return fmt.Sprint(t)
	}
}
