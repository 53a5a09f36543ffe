package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator.
var v = validator.New()

// Validate checks a UserConfig before it is stored. Nothing that fails here may reach the evaluator.
func (c *UserConfig) Validate() error {
	if err := v.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		return fieldError(ve[0])
	}
	if _, err := ValidateTZ(c.TZ); err != nil {
		return err
	}
	if err := ValidateWindow(c.EatingStartM, c.EatingEndM); err != nil {
		return err
	}
	if c.VerifyEnabled && strings.TrimSpace(c.VerifyHandle) == "" {
		return ErrMissingHandle
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "TZ":
		return withValue(ErrInvalidTimezone, fmt.Sprint(fe.Value()))
	case "EatingStartM", "EatingEndM":
		return withValue(ErrInvalidTimeOfDay, fmt.Sprint(fe.Value()))
	case "WaterGoalMl":
		return withValue(ErrInvalidGoal, fmt.Sprint(fe.Value()))
	case "VerifyHandle":
		return &ConfigError{Field: "verify", Reason: "handle too long"}
	}
	return &ConfigError{Field: strings.ToLower(fe.Field()), Reason: "failed " + fe.Tag()}
}
