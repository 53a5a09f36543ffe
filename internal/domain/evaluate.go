package domain

import "time"

const (
	// WaterInterval is both the overdue threshold and the reminder debounce.
	WaterInterval = 90 * time.Minute
	// MilestonePeriod separates fasting milestones counted from LastMealStart.
	MilestonePeriod = 6 * time.Hour
	// ClosingSoonLead is how long before the window end the closing-soon reminder fires.
	ClosingSoonLead = 30 * time.Minute
)

// Decision is what one evaluation wants to happen: events to dispatch and the
// state delta that records them. The caller applies Delta before dispatching.
type Decision struct {
	Events []ReminderEvent
	Delta  StateDelta
}

// Evaluator decides which reminders are due for one user at one instant.
// It performs no I/O; the same inputs always yield the same Decision.
type Evaluator struct {
	clock    *Clock
	summaryM int // local minutes of the daily summary; negative disables it
}

// NewEvaluator creates an Evaluator. summaryM < 0 disables the daily summary.
func NewEvaluator(clock *Clock, summaryM int) *Evaluator {
	return &Evaluator{clock: clock, summaryM: summaryM}
}

// Evaluate applies every rule independently; more than one event may fire per call.
func (e *Evaluator) Evaluate(cfg *UserConfig, st *UserState, now time.Time) (Decision, error) {
	var d Decision
	now = now.UTC()

	e.water(cfg, st, now, &d)
	e.fasting(cfg, st, now, &d)

	local, err := e.clock.Localize(now, cfg.TZ)
	if err != nil {
		return Decision{}, err
	}
	start, end, err := e.clock.WindowBounds(local, cfg.EatingStartM, cfg.EatingEndM, cfg.TZ)
	if err != nil {
		return Decision{}, err
	}
	day := local.Format(DayLayout)

	e.window(cfg, st, now, day, start, end, &d)
	e.summary(cfg, st, now, local, day, &d)
	return d, nil
}

func (e *Evaluator) water(cfg *UserConfig, st *UserState, now time.Time, d *Decision) {
	overdue := st.LastWaterTime == nil || now.Sub(*st.LastWaterTime) > WaterInterval
	if !overdue {
		return
	}
	if st.LastWaterReminderAt != nil && now.Sub(*st.LastWaterReminderAt) <= WaterInterval {
		return
	}
	d.Events = append(d.Events, ReminderEvent{ChatID: cfg.ChatID, Kind: KindWaterDue})
	d.Delta.LastWaterReminderAt = &now
}

// fasting fires the highest milestone boundary reached since LastMealStart, once.
// Boundaries skipped during downtime are folded into that single event.
func (e *Evaluator) fasting(cfg *UserConfig, st *UserState, now time.Time, d *Decision) {
	if st.IsEating || st.LastMealStart == nil {
		return
	}
	elapsed := now.Sub(*st.LastMealStart)
	if elapsed < MilestonePeriod {
		return
	}
	idx := int(elapsed / MilestonePeriod)
	if idx <= st.FastMilestone {
		return
	}
	d.Events = append(d.Events, ReminderEvent{
		ChatID: cfg.ChatID,
		Kind:   KindFastingMilestone,
		Hours:  idx * int(MilestonePeriod/time.Hour),
	})
	d.Delta.FastMilestone = &idx
}

// window handles the three daily window events. Each has a phase on the civil day:
// opened in [start, end), closing-soon in [end-lead, end), closed from end to midnight.
// The first tick inside a phase fires it, and the day marker keeps it at one per day.
func (e *Evaluator) window(cfg *UserConfig, st *UserState, now time.Time, day string, start, end time.Time, d *Decision) {
	inWindow := !now.Before(start) && now.Before(end)

	if inWindow && st.WindowOpenedDay != day {
		d.Events = append(d.Events, ReminderEvent{ChatID: cfg.ChatID, Kind: KindWindowOpened})
		d.Delta.WindowOpenedDay = strPtr(day)
	}

	soon := end.Add(-ClosingSoonLead)
	if !now.Before(soon) && now.Before(end) && st.ClosingSoonDay != day {
		d.Events = append(d.Events, ReminderEvent{ChatID: cfg.ChatID, Kind: KindWindowClosingSoon})
		d.Delta.ClosingSoonDay = strPtr(day)
	}

	if !now.Before(end) && st.WindowClosedDay != day {
		ev := ReminderEvent{
			ChatID:      cfg.ChatID,
			Kind:        KindWindowClosed,
			WindowStart: start.UTC(),
			WindowEnd:   end.UTC(),
		}
		if cfg.VerificationActive() {
			ev.VerifyHandle = cfg.VerifyHandle
		}
		d.Events = append(d.Events, ev)
		d.Delta.WindowClosedDay = strPtr(day)
	}
}

// PassedPhases marks today's window phases that began before now, so a user who joins
// or moves the window mid-day gets no catch-up events for them.
func PassedPhases(c *Clock, cfg *UserConfig, now time.Time) (StateDelta, error) {
	now = now.UTC()
	local, err := c.Localize(now, cfg.TZ)
	if err != nil {
		return StateDelta{}, err
	}
	start, end, err := c.WindowBounds(local, cfg.EatingStartM, cfg.EatingEndM, cfg.TZ)
	if err != nil {
		return StateDelta{}, err
	}
	day := local.Format(DayLayout)

	var d StateDelta
	if now.After(start) {
		d.WindowOpenedDay = strPtr(day)
	}
	if now.After(end.Add(-ClosingSoonLead)) {
		d.ClosingSoonDay = strPtr(day)
	}
	if now.After(end) {
		d.WindowClosedDay = strPtr(day)
	}
	return d, nil
}

func (e *Evaluator) summary(cfg *UserConfig, st *UserState, now, local time.Time, day string, d *Decision) {
	if e.summaryM < 0 || st.SummaryDay == day {
		return
	}
	at := atMinutes(local, e.summaryM, local.Location())
	if now.Before(at) {
		return
	}
	d.Events = append(d.Events, ReminderEvent{
		ChatID:   cfg.ChatID,
		Kind:     KindDailySummary,
		Day:      day,
		DayStart: atMinutes(local, 0, local.Location()).UTC(),
		DayEnd:   nextMidnight(local).UTC(),
	})
	d.Delta.SummaryDay = strPtr(day)
}

func strPtr(s string) *string { return &s }
