package domain

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every configuration rejection via errors.Is.
var ErrConfiguration = errors.New("invalid configuration")

var (
	ErrInvalidTimezone  = &ConfigError{Field: "tz", Reason: "unknown timezone"}
	ErrInvalidTimeOfDay = &ConfigError{Field: "time", Reason: "time of day out of range"}
	ErrInvalidWindow    = &ConfigError{Field: "window", Reason: "window must start before it ends on the same day and last at least 30m"}
	ErrInvalidGoal      = &ConfigError{Field: "goal", Reason: "water goal out of range"}
	ErrInvalidAmount    = &ConfigError{Field: "amount", Reason: "water amount out of range"}
	ErrMissingHandle    = &ConfigError{Field: "verify", Reason: "verification needs a handle"}
	ErrUnknownSetting   = &ConfigError{Field: "field", Reason: "unknown setting"}
)

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Field  string
	Reason string
	Value  string
}

func (e *ConfigError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %q", e.Field, e.Reason, e.Value)
}

// Is matches ErrConfiguration and any ConfigError with the same field and reason,
// so errors.Is(withValue(ErrInvalidTimezone, "x"), ErrInvalidTimezone) holds.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfiguration {
		return true
	}
	t, ok := target.(*ConfigError)
	if !ok {
		return false
	}
	return t.Field == e.Field && t.Reason == e.Reason
}

func withValue(base *ConfigError, value string) error {
	return &ConfigError{Field: base.Field, Reason: base.Reason, Value: value}
}
