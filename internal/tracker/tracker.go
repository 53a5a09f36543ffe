// Package tracker holds the only entry points that mutate user state outside the tick loop.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/store"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/userlock"
)

// Setting names accepted by SetConfig.
const (
	SettingTZ     = "tz"
	SettingWindow = "window"
	SettingGoal   = "goal"
	SettingVerify = "verify"
)

// Defaults are applied to users on first contact.
type Defaults struct {
	TZ          string
	StartM      int
	EndM        int
	WaterGoalMl int
}

// Status is a read-only snapshot for the /status command.
type Status struct {
	Config       domain.UserConfig
	State        domain.UserState
	Local        time.Time
	FastingFor   time.Duration // zero while eating or before the first meal
	WaterTodayMl int
	WindowOpen   bool
}

// Service executes user commands.
type Service struct {
	repo     store.Repo
	locks    *userlock.Locks
	log      *zap.Logger
	clock    *domain.Clock
	defaults Defaults
	now      func() time.Time
}

// New validates defaults and creates a Service.
func New(repo store.Repo, locks *userlock.Locks, clock *domain.Clock, log *zap.Logger, defaults Defaults) (*Service, error) {
	probe := domain.UserConfig{
		ChatID:       1,
		TZ:           defaults.TZ,
		EatingStartM: defaults.StartM,
		EatingEndM:   defaults.EndM,
		WaterGoalMl:  defaults.WaterGoalMl,
	}
	if err := probe.Validate(); err != nil {
		return nil, fmt.Errorf("default user config: %w", err)
	}
	return &Service{
		repo:     repo,
		locks:    locks,
		log:      log,
		clock:    clock,
		defaults: defaults,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// EnsureUser makes sure a user row exists; if not, creates it with defaults.
func (s *Service) EnsureUser(ctx context.Context, chatID int64) (*domain.UserConfig, error) {
	cfg, err := s.repo.GetConfig(ctx, chatID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	cfg = &domain.UserConfig{
		ChatID:       chatID,
		TZ:           s.defaults.TZ,
		EatingStartM: s.defaults.StartM,
		EatingEndM:   s.defaults.EndM,
		WaterGoalMl:  s.defaults.WaterGoalMl,
		CreatedAt:    s.now(),
	}
	unlock := s.locks.Lock(chatID)
	created, err := s.repo.CreateUser(ctx, cfg)
	if err == nil && created {
		err = s.settlePhases(ctx, cfg)
	}
	unlock()
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("user created", zap.Int64("chatID", chatID))
	}
	return s.repo.GetConfig(ctx, chatID)
}

// StartEating marks the start of a meal. It restarts the fasting milestone count.
func (s *Service) StartEating(ctx context.Context, chatID int64) error {
	if _, err := s.EnsureUser(ctx, chatID); err != nil {
		return err
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	now := s.now()
	eating := true
	zero := 0
	return s.repo.RecordAction(ctx,
		domain.Action{ChatID: chatID, Type: domain.ActionEatStart, At: now},
		domain.StateDelta{IsEating: &eating, LastMealStart: &now, FastMilestone: &zero},
	)
}

// StopEating ends the current meal; fasting milestones count from its start.
func (s *Service) StopEating(ctx context.Context, chatID int64) error {
	if _, err := s.EnsureUser(ctx, chatID); err != nil {
		return err
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	eating := false
	return s.repo.RecordAction(ctx,
		domain.Action{ChatID: chatID, Type: domain.ActionEatStop, At: s.now()},
		domain.StateDelta{IsEating: &eating},
	)
}

// LogWater records an intake and clears any pending water reminder.
func (s *Service) LogWater(ctx context.Context, chatID int64, amountMl int) error {
	if err := domain.ValidateWaterAmount(amountMl); err != nil {
		return err
	}
	if _, err := s.EnsureUser(ctx, chatID); err != nil {
		return err
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	now := s.now()
	return s.repo.RecordAction(ctx,
		domain.Action{ChatID: chatID, Type: domain.ActionWater, AmountMl: amountMl, At: now},
		domain.StateDelta{LastWaterTime: &now, ClearWaterReminder: true},
	)
}

// SetConfig validates and stores one setting. Rejections match domain.ErrConfiguration.
func (s *Service) SetConfig(ctx context.Context, chatID int64, field, value string) (*domain.UserConfig, error) {
	if _, err := s.EnsureUser(ctx, chatID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	cfg, err := s.repo.GetConfig(ctx, chatID)
	if err != nil {
		return nil, err
	}
	value = strings.TrimSpace(value)
	field = strings.ToLower(field)

	switch field {
	case SettingTZ:
		tz, err := domain.ValidateTZ(value)
		if err != nil {
			return nil, err
		}
		cfg.TZ = tz
	case SettingWindow:
		from, to, err := domain.ParseWindow(value)
		if err != nil {
			return nil, err
		}
		cfg.EatingStartM, cfg.EatingEndM = from, to
	case SettingGoal:
		goal, err := domain.ParseGoal(value)
		if err != nil {
			return nil, err
		}
		cfg.WaterGoalMl = goal
	case SettingVerify:
		switch strings.ToLower(value) {
		case "off":
			cfg.VerifyEnabled = false
		case "on", "":
			cfg.VerifyEnabled = true
		default:
			cfg.VerifyHandle = strings.TrimPrefix(value, "@")
			cfg.VerifyEnabled = true
		}
	default:
		return nil, &domain.ConfigError{Field: domain.ErrUnknownSetting.Field, Reason: domain.ErrUnknownSetting.Reason, Value: field}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveConfig(ctx, cfg); err != nil {
		return nil, err
	}
	if field == SettingTZ || field == SettingWindow {
		if err := s.settlePhases(ctx, cfg); err != nil {
			return nil, err
		}
	}
	s.log.Info("setting updated", zap.Int64("chatID", chatID), zap.String("field", field))
	return cfg, nil
}

// settlePhases marks today's window phases that already began as done.
func (s *Service) settlePhases(ctx context.Context, cfg *domain.UserConfig) error {
	d, err := domain.PassedPhases(s.clock, cfg, s.now())
	if err != nil {
		return err
	}
	if d.Empty() {
		return nil
	}
	return s.repo.ApplyStateDelta(ctx, cfg.ChatID, d)
}

// Status reports the user's current fasting and hydration picture.
func (s *Service) Status(ctx context.Context, chatID int64) (*Status, error) {
	cfg, err := s.EnsureUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	st, err := s.repo.GetState(ctx, chatID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	local, err := s.clock.Localize(now, cfg.TZ)
	if err != nil {
		return nil, err
	}
	y, m, d := local.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, local.Location())
	water, err := s.repo.SumWater(ctx, chatID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	res := &Status{
		Config:       *cfg,
		State:        *st,
		Local:        local,
		WaterTodayMl: water,
		WindowOpen:   domain.InWindow(domain.MinutesOfDay(local), cfg.EatingStartM, cfg.EatingEndM),
	}
	if !st.IsEating && st.LastMealStart != nil {
		res.FastingFor = now.Sub(*st.LastMealStart)
	}
	return res, nil
}
