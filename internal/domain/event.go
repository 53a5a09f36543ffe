package domain

import "time"

// EventKind tags a ReminderEvent.
type EventKind string

const (
	KindWaterDue           EventKind = "water_due"
	KindFastingMilestone   EventKind = "fasting_milestone"
	KindWindowOpened       EventKind = "window_opened"
	KindWindowClosingSoon  EventKind = "window_closing_soon"
	KindWindowClosed       EventKind = "window_closed"
	KindVerificationResult EventKind = "verification_result"
	KindDailySummary       EventKind = "daily_summary"
)

// Verdict is the tri-state outcome of a compliance check.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictCompliant
	VerdictNonCompliant
)

func (v Verdict) String() string {
	switch v {
	case VerdictCompliant:
		return "compliant"
	case VerdictNonCompliant:
		return "non_compliant"
	default:
		return "unknown"
	}
}

// ReminderEvent is produced per tick and consumed by the dispatcher. It is never persisted.
type ReminderEvent struct {
	ChatID int64
	Kind   EventKind

	Hours   int     // KindFastingMilestone
	Verdict Verdict // KindVerificationResult

	// KindWindowClosed: a non-empty VerifyHandle requests a compliance check
	// covering [WindowStart, WindowEnd).
	VerifyHandle string
	WindowStart  time.Time
	WindowEnd    time.Time

	// KindDailySummary: the civil day [DayStart, DayEnd) being summarized.
	Day      string
	DayStart time.Time
	DayEnd   time.Time
}
