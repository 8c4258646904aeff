package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"customerName" validate:"required"`
	Stage string `json:"stage" validate:"omitempty,even_len"`
}

func TestFieldErrorsUsesJSONNames(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterValidation("even_len", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	}))

	err := v.Struct(sample{Stage: "abc"})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "required", fields["customerName"])
	assert.Equal(t, "even_len", fields["stage"])
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(errors.New("boom")))
}
