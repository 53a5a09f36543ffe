package store

import (
	"database/sql"
	"time"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

func toNullInt64(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UTC().Unix(), Valid: true}
}

func fromNullInt64(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.Unix(ns.Int64, 0).UTC()
	return &t
}

// boolToInt converts a boolean to 1/0; both engines store flags as integers.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const configColumns = `chat_id, created_at, tz, eating_start_m, eating_end_m,
	water_goal_ml, verify_handle, verify_enabled`

func scanConfig(s scanner) (*domain.UserConfig, error) {
	var (
		c         domain.UserConfig
		createdAt int64
		verifyInt int
	)
	if err := s.Scan(&c.ChatID, &createdAt, &c.TZ, &c.EatingStartM, &c.EatingEndM,
		&c.WaterGoalMl, &c.VerifyHandle, &verifyInt); err != nil {
		return nil, err
	}
	c.VerifyEnabled = verifyInt != 0
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &c, nil
}

const stateColumns = `chat_id, is_eating, last_meal_start, last_water_time,
	last_water_reminder_at, fast_milestone, window_opened_day,
	closing_soon_day, window_closed_day, summary_day`

func scanState(s scanner) (*domain.UserState, error) {
	var (
		st        domain.UserState
		eatingInt int
		mealNS    sql.NullInt64
		waterNS   sql.NullInt64
		remindNS  sql.NullInt64
	)
	if err := s.Scan(&st.ChatID, &eatingInt, &mealNS, &waterNS, &remindNS,
		&st.FastMilestone, &st.WindowOpenedDay, &st.ClosingSoonDay,
		&st.WindowClosedDay, &st.SummaryDay); err != nil {
		return nil, err
	}
	st.IsEating = eatingInt != 0
	st.LastMealStart = fromNullInt64(mealNS)
	st.LastWaterTime = fromNullInt64(waterNS)
	st.LastWaterReminderAt = fromNullInt64(remindNS)
	return &st, nil
}

// deltaAssignments renders d as SET clauses and their arguments.
func deltaAssignments(d domain.StateDelta) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if d.IsEating != nil {
		add("is_eating", boolToInt(*d.IsEating))
	}
	if d.LastMealStart != nil {
		add("last_meal_start", toNullInt64(d.LastMealStart))
	}
	if d.LastWaterTime != nil {
		add("last_water_time", toNullInt64(d.LastWaterTime))
	}
	switch {
	case d.ClearWaterReminder:
		add("last_water_reminder_at", sql.NullInt64{})
	case d.LastWaterReminderAt != nil:
		add("last_water_reminder_at", toNullInt64(d.LastWaterReminderAt))
	}
	if d.FastMilestone != nil {
		add("fast_milestone", *d.FastMilestone)
	}
	if d.WindowOpenedDay != nil {
		add("window_opened_day", *d.WindowOpenedDay)
	}
	if d.ClosingSoonDay != nil {
		add("closing_soon_day", *d.ClosingSoonDay)
	}
	if d.WindowClosedDay != nil {
		add("window_closed_day", *d.WindowClosedDay)
	}
	if d.SummaryDay != nil {
		add("summary_day", *d.SummaryDay)
	}
	return sets, args
}
