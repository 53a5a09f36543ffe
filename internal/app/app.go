package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/config"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/notify"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/scheduler"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/store"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/telegram"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/tracker"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/userlock"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/verify"
)

type App struct {
	cfg       config.Config
	log       *zap.Logger
	bot       *tgbotapi.BotAPI
	httpSrv   *http.Server
	repo      store.Repo
	router    *telegram.Router
	scheduler *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

// build wires the store, command service, dispatcher, verifier and scheduler.
func (a *App) build(ctx context.Context) error {
	repo, err := store.Open(ctx, a.cfg.DBDriver, a.cfg.DSN())
	if err != nil {
		a.log.Error("open store failed", zap.String("driver", a.cfg.DBDriver), zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("store ready", zap.String("driver", a.cfg.DBDriver))

	startM, endM, err := domain.ParseWindow(a.cfg.DefaultWindow)
	if err != nil {
		return err
	}
	summaryM, err := a.cfg.SummaryMinutes()
	if err != nil {
		return err
	}

	clock := domain.NewClock()
	locks := userlock.New()
	svc, err := tracker.New(repo, locks, clock, a.log.Named("tracker"), tracker.Defaults{
		TZ:          a.cfg.DefaultTZ,
		StartM:      startM,
		EndM:        endM,
		WaterGoalMl: a.cfg.DefaultWaterGoalMl,
	})
	if err != nil {
		return err
	}
	a.router = telegram.NewRouter(a.bot, a.log.Named("telegram"), svc)

	tpl, err := notify.LoadTemplates(a.cfg.TemplatesPath)
	if err != nil {
		return err
	}
	disp, err := notify.NewDispatcher(a.router, a.log.Named("notify"), tpl,
		notify.WithLimiter(rate.NewLimiter(rate.Limit(a.cfg.SendRate), a.cfg.SendBurst)))
	if err != nil {
		return err
	}

	bsky := verify.NewBluesky(a.cfg.BlueskyAPI, a.cfg.EvidenceTag, &http.Client{})
	verifier := verify.New(bsky, a.log.Named("verify"),
		verify.WithBackoff(a.cfg.VerifyBackoff),
		verify.WithTimeout(a.cfg.VerifyTimeout),
	)

	a.scheduler = scheduler.New(repo, locks, domain.NewEvaluator(clock, summaryM), disp, verifier,
		a.log.Named("scheduler"), scheduler.Options{
			Interval:          a.cfg.TickInterval,
			Workers:           a.cfg.TickWorkers,
			VerifyConcurrency: a.cfg.VerifyConcurrency,
		})
	a.httpSrv.Handler = healthRouter(repo, a.scheduler, func() time.Time { return time.Now().UTC() })
	return nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting fasting-bot",
		zap.String("http", a.cfg.HTTPAddr),
		zap.Duration("tick", a.cfg.TickInterval),
	)

	if err := a.build(ctx); err != nil {
		if a.repo != nil {
			_ = a.repo.Close()
		}
		return err
	}

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Run(ctx)
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.bot.StopReceivingUpdates()

			// Let the current tick and in-flight verifications finish before closing the store.
			wg.Wait()

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
