package transport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// OptionalUUID distinguishes an absent field from an explicit null.
type OptionalUUID struct {
	Value *uuid.UUID
	Set   bool
}

func (o OptionalUUID) IsZero() bool {
	return !o.Set
}

func (o *OptionalUUID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		o.Value = nil
		return nil
	}

	parsed, err := uuid.Parse(raw)
	if err != nil {
		return err
	}
	o.Value = &parsed
	return nil
}

// Flex carries a loosely typed scalar (string, number, bool or null) to
// the normalizer untouched. Set is false when the field was absent.
type Flex struct {
	Value any
	Set   bool
}

func (f Flex) IsZero() bool {
	return !f.Set
}

// IsNull reports an explicit JSON null.
func (f Flex) IsNull() bool {
	return f.Set && f.Value == nil
}

func (f *Flex) UnmarshalJSON(data []byte) error {
	f.Set = true
	if bytes.Equal(data, []byte("null")) {
		f.Value = nil
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case string, float64, bool:
		f.Value = v
		return nil
	default:
		return fmt.Errorf("expected a scalar value, got %s", data)
	}
}

// FlexOf wraps a value as a present Flex.
func FlexOf(v any) Flex {
	return Flex{Value: v, Set: true}
}
