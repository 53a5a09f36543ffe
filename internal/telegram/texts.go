package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// Reply keyboard labels. They double as free-text commands.
const (
	btnEat    = "🍽️ Start eating"
	btnStop   = "⏳ Stop eating"
	btnWater  = "💧 Water"
	btnStatus = "📊 Status"
)

// UI texts in English
const (
	startText = "👋 I track your fasting and hydration.\n\n" +
		"Tap 🍽️ when you start a meal and ⏳ when you are done, log water with 💧 or /water 300.\n" +
		"I will remind you to drink, tell you when your eating window opens and closes, " +
		"and celebrate fasting milestones every 6 hours.\n\n" +
		"Configure your timezone, window and water goal in /settings."
	statusTitle = "🧾 Your status:"
	statusFmt   = "• %s\n• Water today: %d/%d ml (last at %s)\n• Eating window: %s–%s (%s)\n• TZ: %s\n• Check-in: %s\n"

	eatingText     = "🍽️ Eating window started."
	fastingText    = "⏳ Fasting started."
	waterLoggedFmt = "💧 Logged %d ml."
	genericError   = "Something went wrong. Please try again later."
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnEat),
			tgbotapi.NewKeyboardButton(btnStop),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnWater),
			tgbotapi.NewKeyboardButton(btnStatus),
			tgbotapi.NewKeyboardButton("/settings"),
		),
	)
}

// Inline keyboards
func settingsInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🕘 Eating window", "set_window"),
			tgbotapi.NewInlineKeyboardButtonData("🌍 Timezone", "set_tz"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💧 Water goal", "set_goal"),
			tgbotapi.NewInlineKeyboardButtonData("🦋 Check-in", "set_verify"),
		),
	)
}

func windowPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("12:00–20:00", "window:12:00-20:00"),
			tgbotapi.NewInlineKeyboardButtonData("10:00–18:00", "window:10:00-18:00"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("09:00–15:00", "window:09:00-15:00"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "window:custom"),
		),
	)
}

func goalPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1500 ml", "goal:1500"),
			tgbotapi.NewInlineKeyboardButtonData("2000 ml", "goal:2000"),
			tgbotapi.NewInlineKeyboardButtonData("2500 ml", "goal:2500"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("3000 ml", "goal:3000"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "goal:custom"),
		),
	)
}

func tzPresetsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Europe/London", "tz:Europe/London"),
			tgbotapi.NewInlineKeyboardButtonData("Europe/Berlin", "tz:Europe/Berlin"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("America/New_York", "tz:America/New_York"),
			tgbotapi.NewInlineKeyboardButtonData("UTC", "tz:UTC"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "tz:custom"),
		),
	)
}

func verifyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Set handle…", "verify:custom"),
			tgbotapi.NewInlineKeyboardButtonData("Turn off", "verify:off"),
		),
	)
}
