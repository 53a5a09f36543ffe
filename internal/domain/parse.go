package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultWaterMl is logged when a water command carries no amount.
const DefaultWaterMl = 250

const (
	minWaterMl = 1
	maxWaterMl = 5000
)

// ParseWindow parses "HH:MM–HH:MM" or "HH:MM-HH:MM" into minutes since midnight.
// Windows that cross midnight are rejected.
func ParseWindow(s string) (fromM, toM int, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, withValue(ErrInvalidWindow, s)
	}
	sep := "–"
	if strings.Contains(s, "-") && !strings.Contains(s, "–") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, withValue(ErrInvalidWindow, s)
	}
	fromM, err = ParseTimeOfDay(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("from: %w", err)
	}
	toM, err = ParseTimeOfDay(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("to: %w", err)
	}
	if err := ValidateWindow(fromM, toM); err != nil {
		return 0, 0, err
	}
	return fromM, toM, nil
}

// ValidateWindow checks a same-day window of at least 30 minutes.
func ValidateWindow(fromM, toM int) error {
	if !validMinutes(fromM) {
		return withValue(ErrInvalidTimeOfDay, strconv.Itoa(fromM))
	}
	if !validMinutes(toM) {
		return withValue(ErrInvalidTimeOfDay, strconv.Itoa(toM))
	}
	if toM-fromM < int(ClosingSoonLead/time.Minute) {
		return withValue(ErrInvalidWindow, FormatMinutes(fromM)+"–"+FormatMinutes(toM))
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" into minutes since midnight.
func ParseTimeOfDay(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, withValue(ErrInvalidTimeOfDay, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, withValue(ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, withValue(ErrInvalidTimeOfDay, s)
	}
	return h*60 + m, nil
}

// zones backs the package-level validators.
var zones = NewClock()

// ValidateTZ checks that the tz is a valid IANA location and returns its canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := zones.Location(strings.TrimSpace(tz))
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// ParseGoal parses a daily water goal in ml.
func ParseGoal(s string) (int, error) {
	goal, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "ml"))
	if err != nil || goal < 250 || goal > 10000 {
		return 0, withValue(ErrInvalidGoal, s)
	}
	return goal, nil
}

// ParseWaterAmount parses an optional water amount in ml; empty input means DefaultWaterMl.
func ParseWaterAmount(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(s)), "ml")
	if s == "" {
		return DefaultWaterMl, nil
	}
	amount, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, withValue(ErrInvalidAmount, s)
	}
	if err := ValidateWaterAmount(amount); err != nil {
		return 0, err
	}
	return amount, nil
}

// ValidateWaterAmount checks a single logged amount.
func ValidateWaterAmount(ml int) error {
	if ml < minWaterMl || ml > maxWaterMl {
		return withValue(ErrInvalidAmount, strconv.Itoa(ml))
	}
	return nil
}

// FormatMinutes returns HH:MM for minutes since midnight (00:00..23:59).
func FormatMinutes(mins int) string {
	if mins < 0 {
		mins = 0
	}
	h := mins / 60
	m := mins % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// FormatElapsed renders d as "Hh Mm".
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
