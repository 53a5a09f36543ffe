package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/notify"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/store"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/userlock"
)

// Dispatcher delivers one event. notify.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.ReminderEvent, data notify.Data) error
}

// Verifier runs the compliance check requested by a window-closed event.
type Verifier interface {
	Check(ctx context.Context, handle string, since time.Time) domain.Verdict
}

// Options tune the tick loop. Zero values fall back to defaults.
type Options struct {
	Interval          time.Duration
	Workers           int
	VerifyConcurrency int
}

const (
	defaultInterval          = time.Minute
	defaultWorkers           = 4
	defaultVerifyConcurrency = 8
)

// Scheduler evaluates every user on each tick and dispatches the due reminders.
type Scheduler struct {
	repo     store.Repo
	locks    *userlock.Locks
	eval     *domain.Evaluator
	disp     Dispatcher
	verifier Verifier // nil disables verification
	log      *zap.Logger

	interval time.Duration
	workers  int

	verifySem chan struct{}
	pending   sync.WaitGroup
	lastTick  atomic.Int64 // unix nanos of the last completed tick
}

// New creates a Scheduler.
func New(repo store.Repo, locks *userlock.Locks, eval *domain.Evaluator, disp Dispatcher, verifier Verifier, log *zap.Logger, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.VerifyConcurrency <= 0 {
		opts.VerifyConcurrency = defaultVerifyConcurrency
	}
	return &Scheduler{
		repo:      repo,
		locks:     locks,
		eval:      eval,
		disp:      disp,
		verifier:  verifier,
		log:       log,
		interval:  opts.Interval,
		workers:   opts.Workers,
		verifySem: make(chan struct{}, opts.VerifyConcurrency),
	}
}

// Run ticks immediately and then every interval until ctx is canceled.
// It returns after in-flight verifications have finished.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.Wait()

	s.tick(ctx, time.Now().UTC())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return
		case now := <-ticker.C:
			s.tick(ctx, now.UTC())
		}
	}
}

// Wait blocks until all launched verifications are done.
func (s *Scheduler) Wait() { s.pending.Wait() }

// LastTick returns when the last tick completed; zero before the first one.
func (s *Scheduler) LastTick() time.Time {
	n := s.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// Healthy reports whether a tick completed within the last three intervals.
func (s *Scheduler) Healthy(now time.Time) bool {
	last := s.LastTick()
	return !last.IsZero() && now.Sub(last) <= 3*s.interval
}

// tick performs one cycle: every user is evaluated against the same instant.
// A failure for one user is logged and never stops the others.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.log.Error("ListUsers failed", zap.Error(err))
		return
	}

	jobs := make(chan int64)
	var wg sync.WaitGroup
	for range min(s.workers, max(len(users), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chatID := range jobs {
				s.processUser(ctx, chatID, now)
			}
		}()
	}
feed:
	for _, id := range users {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	s.lastTick.Store(now.UnixNano())
	s.log.Debug("tick done", zap.Int("users", len(users)), zap.Time("now", now))
}

// outgoing is an event ready for dispatch together with its template data.
type outgoing struct {
	ev   domain.ReminderEvent
	data notify.Data
}

func (s *Scheduler) processUser(ctx context.Context, chatID int64, now time.Time) {
	out, err := s.evaluate(ctx, chatID, now)
	if err != nil {
		s.log.Error("evaluate failed", zap.Error(err), zap.Int64("chatID", chatID))
		return
	}
	for _, o := range out {
		// Failures are logged by the dispatcher and the event is not retried.
		_ = s.disp.Dispatch(ctx, o.ev, o.data)

		if o.ev.Kind == domain.KindWindowClosed && o.ev.VerifyHandle != "" {
			s.startVerification(ctx, o.ev)
		}
	}
}

// evaluate runs the read-evaluate-commit cycle under the user's lock. Everything an
// event needs is gathered before the delta is committed, and the delta is committed
// before any event leaves, so a crash can lose a reminder but never repeat one.
func (s *Scheduler) evaluate(ctx context.Context, chatID int64, now time.Time) ([]outgoing, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	cfg, err := s.repo.GetConfig(ctx, chatID)
	if err != nil {
		return nil, err
	}
	st, err := s.repo.GetState(ctx, chatID)
	if err != nil {
		return nil, err
	}
	dec, err := s.eval.Evaluate(cfg, st, now)
	if err != nil {
		return nil, err
	}

	out := make([]outgoing, 0, len(dec.Events))
	for _, ev := range dec.Events {
		data := notify.Data{GoalMl: cfg.WaterGoalMl, Hours: ev.Hours, Day: ev.Day}
		if ev.Kind == domain.KindDailySummary {
			water, err := s.repo.SumWater(ctx, chatID, ev.DayStart, ev.DayEnd)
			if err != nil {
				// nothing committed yet: the summary is retried on the next tick
				return nil, fmt.Errorf("daily summary %s: %w", ev.Day, err)
			}
			data.WaterMl = water
		}
		out = append(out, outgoing{ev: ev, data: data})
	}

	if !dec.Delta.Empty() {
		if err := s.repo.ApplyStateDelta(ctx, chatID, dec.Delta); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// startVerification checks compliance off the tick path and reports the verdict
// as a follow-up event.
func (s *Scheduler) startVerification(ctx context.Context, closed domain.ReminderEvent) {
	if s.verifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		select {
		case s.verifySem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-s.verifySem }()

		verdict := s.verifier.Check(ctx, closed.VerifyHandle, closed.WindowStart)
		if ctx.Err() != nil {
			s.log.Warn("verification abandoned", zap.Int64("chatID", closed.ChatID))
			return
		}
		s.log.Info("verification done",
			zap.Int64("chatID", closed.ChatID),
			zap.String("verdict", verdict.String()),
		)
		_ = s.disp.Dispatch(ctx, domain.ReminderEvent{
			ChatID:  closed.ChatID,
			Kind:    domain.KindVerificationResult,
			Verdict: verdict,
		}, notify.Data{})
	}()
}
