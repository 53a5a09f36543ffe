package telegram

import (
	"context"
	"regexp"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/tracker"
)

// BotAPI is the part of *tgbotapi.BotAPI the router uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Tracker executes user commands. *tracker.Service implements it.
type Tracker interface {
	EnsureUser(ctx context.Context, chatID int64) (*domain.UserConfig, error)
	StartEating(ctx context.Context, chatID int64) error
	StopEating(ctx context.Context, chatID int64) error
	LogWater(ctx context.Context, chatID int64, amountMl int) error
	SetConfig(ctx context.Context, chatID int64, field, value string) (*domain.UserConfig, error)
	Status(ctx context.Context, chatID int64) (*tracker.Status, error)
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot     BotAPI
	log     *zap.Logger
	tracker Tracker
	state   map[int64]string // chatID -> setting awaiting free-form input
	mu      sync.RWMutex
}

// NewRouter creates a new Telegram router.
func NewRouter(bot BotAPI, log *zap.Logger, t Tracker) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		tracker: t,
		state:   make(map[int64]string),
	}
}

// setPending sets a pending state for a chat (non-persistent, in-memory).
func (r *Router) setPending(chatID int64, s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[chatID] = s
}

// getPending returns current pending state for a chat.
func (r *Router) getPending(chatID int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state[chatID]
}

// clearPending clears a pending state for a chat.
func (r *Router) clearPending(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.state, chatID)
}

type commandKind int

const (
	cmdNone commandKind = iota
	cmdStart
	cmdStatus
	cmdSettings
	cmdEat
	cmdStop
	cmdWater
	cmdSet
)

type command struct {
	kind  commandKind
	field string // cmdSet only
	arg   string
}

var (
	clockRe  = regexp.MustCompile(`\d{1,2}:\d{2}`)
	numberRe = regexp.MustCompile(`\d+`)
)

// parseCommand maps slash commands, keyboard buttons and plain phrases
// ("set water goal 2500", "start eating", "done") to a command.
func parseCommand(text string) command {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		name, arg, _ := strings.Cut(text, " ")
		name, _, _ = strings.Cut(strings.ToLower(name), "@")
		arg = strings.TrimSpace(arg)
		switch name {
		case "/start":
			return command{kind: cmdStart}
		case "/status":
			return command{kind: cmdStatus}
		case "/settings":
			return command{kind: cmdSettings}
		case "/eat":
			return command{kind: cmdEat}
		case "/stop", "/done":
			return command{kind: cmdStop}
		case "/water":
			return command{kind: cmdWater, arg: arg}
		case "/tz":
			return command{kind: cmdSet, field: tracker.SettingTZ, arg: arg}
		case "/window":
			return command{kind: cmdSet, field: tracker.SettingWindow, arg: arg}
		case "/goal":
			return command{kind: cmdSet, field: tracker.SettingGoal, arg: arg}
		case "/verify":
			return command{kind: cmdSet, field: tracker.SettingVerify, arg: arg}
		}
		return command{}
	}

	lower := strings.ToLower(text)
	switch {
	case strings.HasPrefix(lower, "set timezone"):
		fields := strings.Fields(text)
		if len(fields) < 3 {
			return command{kind: cmdSet, field: tracker.SettingTZ}
		}
		return command{kind: cmdSet, field: tracker.SettingTZ, arg: fields[len(fields)-1]}
	case strings.HasPrefix(lower, "set eating window"):
		return command{kind: cmdSet, field: tracker.SettingWindow, arg: strings.Join(clockRe.FindAllString(text, -1), "-")}
	case strings.HasPrefix(lower, "set water goal"):
		return command{kind: cmdSet, field: tracker.SettingGoal, arg: numberRe.FindString(text)}
	case strings.Contains(lower, "water"):
		return command{kind: cmdWater, arg: numberRe.FindString(text)}
	case strings.Contains(lower, "start") && strings.Contains(lower, "eat"):
		return command{kind: cmdEat}
	case strings.Contains(lower, "stop") || strings.Contains(lower, "done"):
		return command{kind: cmdStop}
	case strings.Contains(lower, "status"):
		return command{kind: cmdStatus}
	}
	return command{}
}

func isButton(text string) bool {
	switch text {
	case btnEat, btnStop, btnWater, btnStatus:
		return true
	}
	return false
}

// HandleUpdate routes a single update to appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message != nil {
		chatID := upd.Message.Chat.ID
		text := strings.TrimSpace(upd.Message.Text)

		// An awaited value wins over phrase matching, so a handle like
		// "waterlover.bsky.social" is not read as a water log.
		if r.getPending(chatID) != "" && !strings.HasPrefix(text, "/") && !isButton(text) {
			r.handleFreeForm(ctx, chatID, text)
			return
		}
		cmd := parseCommand(text)
		if cmd.kind != cmdNone {
			r.clearPending(chatID)
		}
		switch cmd.kind {
		case cmdStart:
			r.handleStart(ctx, chatID)
		case cmdStatus:
			r.handleStatus(ctx, chatID)
		case cmdSettings:
			r.handleSettings(ctx, chatID)
		case cmdEat:
			r.handleEat(ctx, chatID)
		case cmdStop:
			r.handleStop(ctx, chatID)
		case cmdWater:
			r.handleWater(ctx, chatID, cmd.arg)
		case cmdSet:
			if cmd.arg == "" {
				r.askSetting(chatID, cmd.field)
				return
			}
			r.applySetting(ctx, chatID, cmd.field, cmd.arg)
		default:
			// Free-form text used in "Custom" flows
			r.handleFreeForm(ctx, chatID, text)
		}
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil {
		cb := upd.CallbackQuery
		r.handleCallback(ctx, cb.Message.Chat.ID, cb.Data, cb.ID)
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy notify.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
