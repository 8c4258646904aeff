package transport

import (
	"leadtracker_backend/internal/leads/domain"
	"leadtracker_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
)

// RegisterValidators installs the lead_stage and lead_intent tags.
// lead_stage rejects the escalated stage, which only the sweep may set.
func RegisterValidators(v *validator.Validator) error {
	if err := v.RegisterValidation("lead_stage", func(fl playground.FieldLevel) bool {
		stage, ok := domain.ParseStage(fl.Field().String())
		return ok && stage != domain.StageEscalated
	}); err != nil {
		return err
	}
	return v.RegisterValidation("lead_intent", func(fl playground.FieldLevel) bool {
		_, ok := domain.ParseIntent(fl.Field().String())
		return ok
	})
}
