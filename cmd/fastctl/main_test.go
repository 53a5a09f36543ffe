package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

func TestPrintDecision(t *testing.T) {
	color.NoColor = true
	now := time.Date(2026, 1, 13, 20, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	printDecision(&buf, now, domain.Decision{})
	assert.Equal(t, "at 2026-01-13T20:00:00Z\nnothing due\n", buf.String())

	buf.Reset()
	printDecision(&buf, now, domain.Decision{Events: []domain.ReminderEvent{
		{Kind: domain.KindFastingMilestone, Hours: 12},
		{Kind: domain.KindWindowClosed, VerifyHandle: "alice.bsky.social"},
	}})
	assert.Equal(t, "at 2026-01-13T20:00:00Z\n  fasting_milestone (12h)\n  window_closed (verify alice.bsky.social)\n", buf.String())
}

func TestStateLabel(t *testing.T) {
	color.NoColor = true
	meal := time.Now()
	assert.Equal(t, "eating", stateLabel(&domain.UserState{IsEating: true}))
	assert.Equal(t, "fasting", stateLabel(&domain.UserState{LastMealStart: &meal}))
	assert.Equal(t, "idle", stateLabel(&domain.UserState{}))
}

func TestResolveSummary(t *testing.T) {
	prev := *summaryAt
	t.Cleanup(func() { *summaryAt = prev })

	t.Setenv("SUMMARY_AT", "19:30")
	*summaryAt = "21:00"
	resolveSummary(false)
	assert.Equal(t, "19:30", *summaryAt)

	*summaryAt = "22:00"
	resolveSummary(true)
	assert.Equal(t, "22:00", *summaryAt, "explicit flag wins")

	t.Setenv("SUMMARY_AT", "")
	resolveSummary(false)
	assert.Empty(t, *summaryAt)
}
