package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/tracker"
)

// --- Generic helpers ---

func (r *Router) sendText(chatID int64, text string) {
	_, _ = r.bot.Send(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) answerCallback(id, text string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, text))
	return err
}

// replyError tells the user what was wrong with a rejected setting, or
// sends a generic failure for anything else.
func (r *Router) replyError(chatID int64, op string, err error) {
	var ce *domain.ConfigError
	if errors.As(err, &ce) {
		r.sendText(chatID, "⚠️ "+invalidText(ce))
		return
	}
	r.log.Error(op+" failed", zap.Error(err), zap.Int64("chatID", chatID))
	r.sendText(chatID, genericError)
}

func invalidText(ce *domain.ConfigError) string {
	switch {
	case errors.Is(ce, domain.ErrInvalidTimezone):
		return "Invalid timezone. Example: Europe/Berlin"
	case errors.Is(ce, domain.ErrInvalidWindow), errors.Is(ce, domain.ErrInvalidTimeOfDay):
		return "Invalid eating window. Use HH:MM–HH:MM within one day, at least 30 minutes long (e.g., 12:00–20:00)."
	case errors.Is(ce, domain.ErrInvalidGoal):
		return "Water goal must be between 250 and 10000 ml."
	case errors.Is(ce, domain.ErrInvalidAmount):
		return "Water amount must be between 1 and 5000 ml."
	case errors.Is(ce, domain.ErrMissingHandle):
		return "Set your Bluesky handle first: /verify yourname.bsky.social"
	}
	return "Invalid value: " + ce.Error()
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	if _, err := r.tracker.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Profile initialization error. Please try again later.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleStatus(ctx context.Context, chatID int64) {
	st, err := r.tracker.Status(ctx, chatID)
	if err != nil {
		r.log.Error("status failed", zap.Error(err))
		r.sendText(chatID, "Error reading your status.")
		return
	}
	r.sendText(chatID, statusBody(st))
}

func statusBody(st *tracker.Status) string {
	phase := "No meals logged yet"
	switch {
	case st.State.IsEating:
		phase = "🍽️ You are currently eating"
	case st.State.LastMealStart != nil:
		phase = "⏳ Fasting for " + domain.FormatElapsed(st.FastingFor)
	}
	window := "closed"
	if st.WindowOpen {
		window = "open"
	}
	lastWater := "never"
	if st.State.LastWaterTime != nil {
		lastWater = st.State.LastWaterTime.In(st.Local.Location()).Format("15:04")
	}
	checkIn := "off"
	if st.Config.VerificationActive() {
		checkIn = st.Config.VerifyHandle
	}
	return fmt.Sprintf("%s\n\n"+statusFmt,
		statusTitle,
		phase,
		st.WaterTodayMl, st.Config.WaterGoalMl, lastWater,
		domain.FormatMinutes(st.Config.EatingStartM), domain.FormatMinutes(st.Config.EatingEndM), window,
		st.Config.TZ,
		checkIn,
	)
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	if _, err := r.tracker.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensureUser failed", zap.Error(err))
		r.sendText(chatID, "Error opening settings.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, "What do you want to configure?")
	msg.ReplyMarkup = settingsInlineKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleEat(ctx context.Context, chatID int64) {
	if err := r.tracker.StartEating(ctx, chatID); err != nil {
		r.replyError(chatID, "startEating", err)
		return
	}
	r.sendText(chatID, eatingText)
}

func (r *Router) handleStop(ctx context.Context, chatID int64) {
	if err := r.tracker.StopEating(ctx, chatID); err != nil {
		r.replyError(chatID, "stopEating", err)
		return
	}
	r.sendText(chatID, fastingText)
}

func (r *Router) handleWater(ctx context.Context, chatID int64, arg string) {
	ml, err := domain.ParseWaterAmount(arg)
	if err != nil {
		r.replyError(chatID, "parseWater", err)
		return
	}
	if err := r.tracker.LogWater(ctx, chatID, ml); err != nil {
		r.replyError(chatID, "logWater", err)
		return
	}
	r.sendText(chatID, fmt.Sprintf(waterLoggedFmt, ml))
}

// --- Settings flows ---

// askSetting shows presets for a setting, or asks for free-form input.
func (r *Router) askSetting(chatID int64, field string) {
	var msg tgbotapi.MessageConfig
	switch field {
	case tracker.SettingWindow:
		msg = tgbotapi.NewMessage(chatID, "Choose your eating window (or Custom):")
		msg.ReplyMarkup = windowPresetsKeyboard()
	case tracker.SettingTZ:
		msg = tgbotapi.NewMessage(chatID, "Choose a timezone or enter your own (Region/City):")
		msg.ReplyMarkup = tzPresetsKeyboard()
	case tracker.SettingGoal:
		msg = tgbotapi.NewMessage(chatID, "Choose a daily water goal (or Custom):")
		msg.ReplyMarkup = goalPresetsKeyboard()
	case tracker.SettingVerify:
		msg = tgbotapi.NewMessage(chatID, "After your window closes I can look for a check-in post on your Bluesky account.")
		msg.ReplyMarkup = verifyKeyboard()
	default:
		return
	}
	_, _ = r.bot.Send(msg)
}

func (r *Router) askCustom(chatID int64, field string) {
	prompts := map[string]string{
		tracker.SettingWindow: "Enter eating window as HH:MM–HH:MM (e.g., 12:00–20:00)",
		tracker.SettingTZ:     "Enter timezone (e.g., Europe/Berlin):",
		tracker.SettingGoal:   "Enter daily water goal in ml (250–10000):",
		tracker.SettingVerify: "Enter your Bluesky handle (e.g., alice.bsky.social):",
	}
	r.sendText(chatID, prompts[field])
	r.setPending(chatID, field)
}

func (r *Router) applySetting(ctx context.Context, chatID int64, field, value string) {
	cfg, err := r.tracker.SetConfig(ctx, chatID, field, value)
	if err != nil {
		r.replyError(chatID, "setConfig", err)
		return
	}
	r.sendText(chatID, settingUpdatedText(field, cfg))
}

func settingUpdatedText(field string, cfg *domain.UserConfig) string {
	switch field {
	case tracker.SettingWindow:
		return "🍽️ Eating window set to " + domain.FormatMinutes(cfg.EatingStartM) + "–" + domain.FormatMinutes(cfg.EatingEndM) + "."
	case tracker.SettingTZ:
		return "🕒 Timezone set to " + cfg.TZ + "."
	case tracker.SettingGoal:
		return fmt.Sprintf("💧 Water goal set to %d ml.", cfg.WaterGoalMl)
	case tracker.SettingVerify:
		if cfg.VerificationActive() {
			return "🦋 Check-in verification on for " + cfg.VerifyHandle + "."
		}
		return "🦋 Check-in verification off."
	}
	return "Settings updated."
}

func (r *Router) handleCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")

	if field, ok := strings.CutPrefix(data, "set_"); ok {
		r.askSetting(chatID, field)
		return
	}
	field, value, ok := strings.Cut(data, ":")
	if !ok {
		// Unknown callback: ignore silently
		return
	}
	switch field {
	case tracker.SettingWindow, tracker.SettingTZ, tracker.SettingGoal, tracker.SettingVerify:
	default:
		return
	}
	if value == "custom" {
		r.askCustom(chatID, field)
		return
	}
	r.applySetting(ctx, chatID, field, value)
}

// --- Free-form dispatcher (for all "Custom" inputs) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	field := r.getPending(chatID)
	if field == "" {
		// No pending flow: ignore free-form message
		return
	}
	r.clearPending(chatID)
	r.applySetting(ctx, chatID, field, text)
}
