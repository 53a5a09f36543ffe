package domain

import "time"

// UserConfig is the per-chat configuration. It is read once per tick and never mutated by the evaluator.
type UserConfig struct {
	ChatID        int64     `validate:"required"`
	TZ            string    `validate:"required"`
	EatingStartM  int       `validate:"gte=0,lte=1439"` // minutes from midnight
	EatingEndM    int       `validate:"gte=0,lte=1439"` // minutes from midnight
	WaterGoalMl   int       `validate:"gte=250,lte=10000"`
	VerifyHandle  string    `validate:"max=253"`
	VerifyEnabled bool      `validate:"-"`
	CreatedAt     time.Time `validate:"-"` // UTC
}

// VerificationActive reports whether the window-closed check should run for this user.
func (c *UserConfig) VerificationActive() bool {
	return c.VerifyEnabled && c.VerifyHandle != ""
}

// UserState is the mutable timing state of a chat. Only the tracker commands and the
// evaluator's returned deltas change it.
type UserState struct {
	ChatID              int64
	IsEating            bool
	LastMealStart       *time.Time // UTC, nullable
	LastWaterTime       *time.Time // UTC, nullable
	LastWaterReminderAt *time.Time // UTC, nullable
	FastMilestone       int        // highest fasting milestone index fired for LastMealStart

	// Civil days (YYYY-MM-DD in the user's zone) on which each daily event last fired.
	WindowOpenedDay string
	ClosingSoonDay  string
	WindowClosedDay string
	SummaryDay      string
}

// StateDelta is a partial update of UserState. Nil fields are left untouched.
type StateDelta struct {
	IsEating            *bool
	LastMealStart       *time.Time
	LastWaterTime       *time.Time
	LastWaterReminderAt *time.Time
	ClearWaterReminder  bool // sets LastWaterReminderAt to NULL; wins over LastWaterReminderAt
	FastMilestone       *int
	WindowOpenedDay     *string
	ClosingSoonDay      *string
	WindowClosedDay     *string
	SummaryDay          *string
}

// Empty reports whether applying d would change nothing.
func (d StateDelta) Empty() bool {
	return d.IsEating == nil && d.LastMealStart == nil && d.LastWaterTime == nil &&
		d.LastWaterReminderAt == nil && !d.ClearWaterReminder && d.FastMilestone == nil &&
		d.WindowOpenedDay == nil && d.ClosingSoonDay == nil && d.WindowClosedDay == nil &&
		d.SummaryDay == nil
}

// Apply returns a copy of s with d applied, matching what the SQL update does.
func (d StateDelta) Apply(s UserState) UserState {
	if d.IsEating != nil {
		s.IsEating = *d.IsEating
	}
	if d.LastMealStart != nil {
		t := d.LastMealStart.UTC()
		s.LastMealStart = &t
	}
	if d.LastWaterTime != nil {
		t := d.LastWaterTime.UTC()
		s.LastWaterTime = &t
	}
	if d.LastWaterReminderAt != nil {
		t := d.LastWaterReminderAt.UTC()
		s.LastWaterReminderAt = &t
	}
	if d.ClearWaterReminder {
		s.LastWaterReminderAt = nil
	}
	if d.FastMilestone != nil {
		s.FastMilestone = *d.FastMilestone
	}
	if d.WindowOpenedDay != nil {
		s.WindowOpenedDay = *d.WindowOpenedDay
	}
	if d.ClosingSoonDay != nil {
		s.ClosingSoonDay = *d.ClosingSoonDay
	}
	if d.WindowClosedDay != nil {
		s.WindowClosedDay = *d.WindowClosedDay
	}
	if d.SummaryDay != nil {
		s.SummaryDay = *d.SummaryDay
	}
	return s
}

// ActionType classifies rows in the action log.
type ActionType string

const (
	ActionEatStart ActionType = "EAT_START"
	ActionEatStop  ActionType = "EAT_STOP"
	ActionWater    ActionType = "WATER"
)

// Action is one logged user command.
type Action struct {
	ID       string
	ChatID   int64
	Type     ActionType
	AmountMl int // WATER only
	At       time.Time
}
