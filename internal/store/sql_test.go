package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func defaultConfig(chatID int64) *domain.UserConfig {
	return &domain.UserConfig{
		ChatID:       chatID,
		TZ:           "UTC",
		EatingStartM: 12 * 60,
		EatingEndM:   20 * 60,
		WaterGoalMl:  2000,
	}
}

func TestCreateUser_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	created, err := repo.CreateUser(ctx, defaultConfig(7))
	require.NoError(t, err)
	assert.True(t, created)

	other := defaultConfig(7)
	other.TZ = "Asia/Almaty"
	created, err = repo.CreateUser(ctx, other)
	require.NoError(t, err)
	assert.False(t, created)

	cfg, err := repo.GetConfig(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.TZ)

	st, err := repo.GetState(ctx, 7)
	require.NoError(t, err)
	assert.False(t, st.IsEating)
	assert.Nil(t, st.LastMealStart)
	assert.Nil(t, st.LastWaterReminderAt)
	assert.Empty(t, st.WindowClosedDay)
}

func TestGet_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.GetConfig(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetState(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	err = repo.ApplyStateDelta(context.Background(), 1, domain.StateDelta{FastMilestone: new(int)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveConfig(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	_, err := repo.CreateUser(ctx, defaultConfig(7))
	require.NoError(t, err)

	cfg := defaultConfig(7)
	cfg.TZ = "Europe/Tallinn"
	cfg.EatingStartM, cfg.EatingEndM = 10*60, 18*60
	cfg.VerifyEnabled, cfg.VerifyHandle = true, "alice.bsky.social"
	require.NoError(t, repo.SaveConfig(ctx, cfg))

	got, err := repo.GetConfig(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Tallinn", got.TZ)
	assert.Equal(t, 10*60, got.EatingStartM)
	assert.True(t, got.VerifyEnabled)
	assert.Equal(t, "alice.bsky.social", got.VerifyHandle)

	assert.ErrorIs(t, repo.SaveConfig(ctx, defaultConfig(99)), ErrNotFound)
}

func TestApplyStateDelta_PartialAndClear(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	_, err := repo.CreateUser(ctx, defaultConfig(7))
	require.NoError(t, err)

	now := time.Date(2026, 1, 13, 20, 0, 0, 0, time.UTC)
	eating := true
	milestone := 3
	day := "2026-01-13"
	require.NoError(t, repo.ApplyStateDelta(ctx, 7, domain.StateDelta{
		IsEating:            &eating,
		LastMealStart:       &now,
		LastWaterReminderAt: &now,
		FastMilestone:       &milestone,
		WindowClosedDay:     &day,
	}))

	st, err := repo.GetState(ctx, 7)
	require.NoError(t, err)
	assert.True(t, st.IsEating)
	require.NotNil(t, st.LastMealStart)
	assert.True(t, st.LastMealStart.Equal(now))
	require.NotNil(t, st.LastWaterReminderAt)
	assert.Equal(t, 3, st.FastMilestone)
	assert.Equal(t, day, st.WindowClosedDay)
	assert.Empty(t, st.WindowOpenedDay)

	// Untouched fields survive; clearing wins over a set.
	require.NoError(t, repo.ApplyStateDelta(ctx, 7, domain.StateDelta{ClearWaterReminder: true, LastWaterReminderAt: &now}))
	st, err = repo.GetState(ctx, 7)
	require.NoError(t, err)
	assert.Nil(t, st.LastWaterReminderAt)
	assert.True(t, st.IsEating)
	assert.Equal(t, 3, st.FastMilestone)

	// An empty delta is a no-op.
	assert.NoError(t, repo.ApplyStateDelta(ctx, 7, domain.StateDelta{}))
}

func TestRecordActionAndSumWater(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	_, err := repo.CreateUser(ctx, defaultConfig(7))
	require.NoError(t, err)

	day := time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC)
	for _, a := range []domain.Action{
		{ChatID: 7, Type: domain.ActionWater, AmountMl: 250, At: day.Add(-time.Minute)},
		{ChatID: 7, Type: domain.ActionWater, AmountMl: 300, At: day.Add(9 * time.Hour)},
		{ChatID: 7, Type: domain.ActionEatStart, At: day.Add(12 * time.Hour)},
		{ChatID: 7, Type: domain.ActionWater, AmountMl: 500, At: day.Add(23 * time.Hour)},
	} {
		at := a.At
		require.NoError(t, repo.RecordAction(ctx, a, domain.StateDelta{LastWaterTime: &at, ClearWaterReminder: true}))
	}

	total, err := repo.SumWater(ctx, 7, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 800, total)

	total, err = repo.SumWater(ctx, 8, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, total)

	st, err := repo.GetState(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, st.LastWaterTime)
	assert.True(t, st.LastWaterTime.Equal(day.Add(23*time.Hour)))
}

func TestRecordAction_RollsBackOnMissingState(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	now := time.Now().UTC()
	err := repo.RecordAction(ctx, domain.Action{ChatID: 5, Type: domain.ActionWater, AmountMl: 250, At: now},
		domain.StateDelta{LastWaterTime: &now})
	// foreign key on actions.chat_id rejects unknown chats
	assert.Error(t, err)
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	for _, id := range []int64{30, 10, 20} {
		_, err := repo.CreateUser(ctx, defaultConfig(id))
		require.NoError(t, err)
	}
	ids, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20, 30}, ids)
}

func TestRebind(t *testing.T) {
	q := "UPDATE state SET a = ?, b = ? WHERE chat_id = ?"
	assert.Equal(t, q, sqliteDialect.rebind(q))
	assert.Equal(t, "UPDATE state SET a = $1, b = $2 WHERE chat_id = $3", postgresDialect.rebind(q))
}

func TestOpen_MigrationsRecordedOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "twice.db")

	for range 2 {
		repo, err := OpenSQLite(ctx, path)
		require.NoError(t, err)

		var n int
		require.NoError(t, repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
		assert.Equal(t, 1, n)
		require.NoError(t, repo.Close())
	}
}
