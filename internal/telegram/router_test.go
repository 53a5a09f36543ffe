package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/tracker"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want command
	}{
		{"/start", command{kind: cmdStart}},
		{"/status@FastBot", command{kind: cmdStatus}},
		{"/water", command{kind: cmdWater}},
		{"/water 300", command{kind: cmdWater, arg: "300"}},
		{"/tz Europe/Berlin", command{kind: cmdSet, field: tracker.SettingTZ, arg: "Europe/Berlin"}},
		{"/window 10:00-18:00", command{kind: cmdSet, field: tracker.SettingWindow, arg: "10:00-18:00"}},
		{"/verify off", command{kind: cmdSet, field: tracker.SettingVerify, arg: "off"}},
		{"/unknown", command{}},
		{btnEat, command{kind: cmdEat}},
		{btnStop, command{kind: cmdStop}},
		{btnWater, command{kind: cmdWater}},
		{btnStatus, command{kind: cmdStatus}},
		{"Set timezone America/New_York", command{kind: cmdSet, field: tracker.SettingTZ, arg: "America/New_York"}},
		{"set eating window 11:30 19:30", command{kind: cmdSet, field: tracker.SettingWindow, arg: "11:30-19:30"}},
		{"set water goal 2500", command{kind: cmdSet, field: tracker.SettingGoal, arg: "2500"}},
		{"drank water 400ml", command{kind: cmdWater, arg: "400"}},
		{"done", command{kind: cmdStop}},
		{"hello", command{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseCommand(tc.in), tc.in)
	}
}

type fakeBot struct {
	texts []string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.texts = append(b.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) last() string {
	if len(b.texts) == 0 {
		return ""
	}
	return b.texts[len(b.texts)-1]
}

type mockTracker struct{ mock.Mock }

func (m *mockTracker) EnsureUser(ctx context.Context, chatID int64) (*domain.UserConfig, error) {
	args := m.Called(ctx, chatID)
	cfg, _ := args.Get(0).(*domain.UserConfig)
	return cfg, args.Error(1)
}

func (m *mockTracker) StartEating(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *mockTracker) StopEating(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *mockTracker) LogWater(ctx context.Context, chatID int64, amountMl int) error {
	return m.Called(ctx, chatID, amountMl).Error(0)
}

func (m *mockTracker) SetConfig(ctx context.Context, chatID int64, field, value string) (*domain.UserConfig, error) {
	args := m.Called(ctx, chatID, field, value)
	cfg, _ := args.Get(0).(*domain.UserConfig)
	return cfg, args.Error(1)
}

func (m *mockTracker) Status(ctx context.Context, chatID int64) (*tracker.Status, error) {
	args := m.Called(ctx, chatID)
	st, _ := args.Get(0).(*tracker.Status)
	return st, args.Error(1)
}

func message(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, Text: text}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func newTestRouter() (*Router, *fakeBot, *mockTracker) {
	bot := &fakeBot{}
	tr := &mockTracker{}
	return NewRouter(bot, zap.NewNop(), tr), bot, tr
}

func TestHandleUpdate_WaterDefaultsTo250(t *testing.T) {
	r, bot, tr := newTestRouter()
	tr.On("LogWater", mock.Anything, int64(5), 250).Return(nil).Once()

	r.HandleUpdate(context.Background(), message(5, btnWater))
	assert.Equal(t, "💧 Logged 250 ml.", bot.last())
	tr.AssertExpectations(t)
}

func TestHandleUpdate_RejectedAmountIsExplained(t *testing.T) {
	r, bot, tr := newTestRouter()

	r.HandleUpdate(context.Background(), message(5, "/water 9000"))
	assert.Contains(t, bot.last(), "between 1 and 5000")
	tr.AssertNotCalled(t, "LogWater", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUpdate_EatAndStop(t *testing.T) {
	r, bot, tr := newTestRouter()
	tr.On("StartEating", mock.Anything, int64(1)).Return(nil).Once()
	tr.On("StopEating", mock.Anything, int64(1)).Return(nil).Once()

	r.HandleUpdate(context.Background(), message(1, "/eat"))
	assert.Equal(t, eatingText, bot.last())
	r.HandleUpdate(context.Background(), message(1, "stop eating"))
	assert.Equal(t, fastingText, bot.last())
	tr.AssertExpectations(t)
}

func TestHandleUpdate_CustomFlowUsesPendingField(t *testing.T) {
	r, bot, tr := newTestRouter()
	cfg := &domain.UserConfig{ChatID: 3, TZ: "UTC", VerifyHandle: "waterlover.bsky.social", VerifyEnabled: true}
	tr.On("SetConfig", mock.Anything, int64(3), tracker.SettingVerify, "waterlover.bsky.social").Return(cfg, nil).Once()

	r.HandleUpdate(context.Background(), callback(3, "verify:custom"))
	assert.Equal(t, tracker.SettingVerify, r.getPending(3))

	r.HandleUpdate(context.Background(), message(3, "waterlover.bsky.social"))
	assert.Equal(t, "🦋 Check-in verification on for waterlover.bsky.social.", bot.last())
	assert.Empty(t, r.getPending(3))
	tr.AssertExpectations(t)
}

func TestHandleUpdate_PresetCallback(t *testing.T) {
	r, bot, tr := newTestRouter()
	cfg := &domain.UserConfig{ChatID: 3, TZ: "America/New_York"}
	tr.On("SetConfig", mock.Anything, int64(3), tracker.SettingTZ, "America/New_York").Return(cfg, nil).Once()

	r.HandleUpdate(context.Background(), callback(3, "tz:America/New_York"))
	assert.Equal(t, "🕒 Timezone set to America/New_York.", bot.last())
	tr.AssertExpectations(t)
}

func TestHandleUpdate_ConfigErrorReply(t *testing.T) {
	r, bot, tr := newTestRouter()
	tr.On("SetConfig", mock.Anything, int64(3), tracker.SettingWindow, "20:00-08:00").
		Return(nil, domain.ErrInvalidWindow).Once()

	r.HandleUpdate(context.Background(), message(3, "/window 20:00-08:00"))
	assert.Contains(t, bot.last(), "Invalid eating window")
}

func TestStatusBody(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	meal := time.Date(2026, 1, 13, 6, 0, 0, 0, time.UTC)
	st := &tracker.Status{
		Config: domain.UserConfig{
			TZ: "Europe/Berlin", EatingStartM: 720, EatingEndM: 1200, WaterGoalMl: 2000,
		},
		State:        domain.UserState{LastMealStart: &meal},
		FastingFor:   14*time.Hour + 30*time.Minute,
		WaterTodayMl: 750,
		Local:        time.Date(2026, 1, 13, 21, 30, 0, 0, berlin),
	}
	body := statusBody(st)
	assert.Contains(t, body, "Fasting for 14h 30m")
	assert.Contains(t, body, "750/2000 ml (last at never)")
	assert.Contains(t, body, "12:00–20:00 (closed)")
	assert.Contains(t, body, "Check-in: off")

	water := time.Date(2026, 1, 13, 17, 5, 0, 0, time.UTC)
	st.State.LastWaterTime = &water
	assert.Contains(t, statusBody(st), "(last at 18:05)")

	st.State.IsEating = true
	require.Contains(t, statusBody(st), "currently eating")
}
