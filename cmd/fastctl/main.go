// Package main implements fastctl, an operator CLI that inspects the bot's store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
	"github.com/VladDoesAI/telegram-fastiing-bot/internal/store"
)

var (
	driver    = flag.String("driver", "", "Store driver: sqlite or postgres (or set DB_DRIVER)")
	dsn       = flag.String("dsn", "", "SQLite path or Postgres DSN (or set DB_PATH / DB_DSN)")
	at        = flag.String("at", "", "Evaluate at this RFC3339 instant instead of now")
	summaryAt = flag.String("summary-at", "21:00", "Local time of the daily summary; empty disables it (or set SUMMARY_AT)")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	resolveStore()
	resolveSummary(flagSet("summary-at"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := store.Open(ctx, *driver, *dsn)
	if err != nil {
		fail("open store: %v", err)
	}
	defer func() { _ = repo.Close() }()

	switch args[0] {
	case "users":
		err = listUsers(ctx, os.Stdout, repo)
	case "eval":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		err = evalUser(ctx, os.Stdout, repo, args[1])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		cancel()
		fail("%s: %v", args[0], err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] users | eval <chat-id>\n", os.Args[0])
	flag.PrintDefaults()
}

func fail(format string, a ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(1)
}

func resolveStore() {
	if *driver == "" {
		*driver = os.Getenv("DB_DRIVER")
	}
	if *driver == "" {
		*driver = "sqlite"
	}
	if *dsn != "" {
		return
	}
	if *driver == "postgres" {
		*dsn = os.Getenv("DB_DSN")
		return
	}
	*dsn = os.Getenv("DB_PATH")
	if *dsn == "" {
		*dsn = "./data/fasting.db"
	}
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// resolveSummary takes SUMMARY_AT like the bot does unless -summary-at was given.
// A set but empty SUMMARY_AT disables the summary.
func resolveSummary(explicit bool) {
	if explicit {
		return
	}
	if v, ok := os.LookupEnv("SUMMARY_AT"); ok {
		*summaryAt = v
	}
}

func listUsers(ctx context.Context, w io.Writer, repo store.Repo) error {
	ids, err := repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	header := color.New(color.Bold)
	header.Fprintf(w, "%-14s %-20s %-13s %-7s %s\n", "CHAT", "TZ", "WINDOW", "GOAL", "STATE")
	for _, id := range ids {
		cfg, err := repo.GetConfig(ctx, id)
		if err != nil {
			return err
		}
		st, err := repo.GetState(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-14d %-20s %-13s %-7d %s\n",
			id, cfg.TZ,
			domain.FormatMinutes(cfg.EatingStartM)+"-"+domain.FormatMinutes(cfg.EatingEndM),
			cfg.WaterGoalMl, stateLabel(st))
	}
	return nil
}

func stateLabel(st *domain.UserState) string {
	switch {
	case st.IsEating:
		return color.YellowString("eating")
	case st.LastMealStart != nil:
		return color.GreenString("fasting")
	}
	return color.HiBlackString("idle")
}

// evalUser dry-runs the evaluator for one user; nothing is written back.
func evalUser(ctx context.Context, w io.Writer, repo store.Repo, arg string) error {
	chatID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("bad chat id %q", arg)
	}
	now := time.Now().UTC()
	if *at != "" {
		if now, err = time.Parse(time.RFC3339, *at); err != nil {
			return fmt.Errorf("bad -at: %w", err)
		}
	}
	summaryM := -1
	if *summaryAt != "" {
		if summaryM, err = domain.ParseTimeOfDay(*summaryAt); err != nil {
			return err
		}
	}

	cfg, err := repo.GetConfig(ctx, chatID)
	if err != nil {
		return err
	}
	st, err := repo.GetState(ctx, chatID)
	if err != nil {
		return err
	}
	dec, err := domain.NewEvaluator(domain.NewClock(), summaryM).Evaluate(cfg, st, now)
	if err != nil {
		return err
	}
	printDecision(w, now, dec)
	return nil
}

func printDecision(w io.Writer, now time.Time, dec domain.Decision) {
	fmt.Fprintf(w, "at %s\n", now.Format(time.RFC3339))
	if len(dec.Events) == 0 {
		color.New(color.FgHiBlack).Fprintln(w, "nothing due")
		return
	}
	due := color.New(color.FgGreen)
	for _, ev := range dec.Events {
		due.Fprintf(w, "  %s", ev.Kind)
		switch {
		case ev.Kind == domain.KindFastingMilestone:
			fmt.Fprintf(w, " (%dh)", ev.Hours)
		case ev.VerifyHandle != "":
			fmt.Fprintf(w, " (verify %s)", ev.VerifyHandle)
		}
		fmt.Fprintln(w)
	}
}
