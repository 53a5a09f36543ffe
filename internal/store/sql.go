package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registers the "postgres" driver.
	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"
	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

// SQLRepo implements Repo on database/sql for SQLite and Postgres.
type SQLRepo struct {
	db *sql.DB
	d  dialect
}

var _ Repo = (*SQLRepo)(nil)

// Open opens the store selected by driver ("sqlite" or "postgres").
// For sqlite dsn is a file path.
func Open(ctx context.Context, driver, dsn string) (*SQLRepo, error) {
	switch driver {
	case "sqlite", "":
		return OpenSQLite(ctx, dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown db driver %q", driver)
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return finishOpen(ctx, db, sqliteDialect)
}

// OpenPostgres connects to Postgres using a lib/pq DSN and runs migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLRepo, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN not set")
	}
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return finishOpen(ctx, db, postgresDialect)
}

func finishOpen(ctx context.Context, db *sql.DB, d dialect) (*SQLRepo, error) {
	if err := runMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &SQLRepo{db: db, d: d}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLRepo) Close() error {
	return r.db.Close()
}

// Ping checks that the database is reachable.
func (r *SQLRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser inserts the user's configuration and a blank state row in one transaction.
// Existing chats are left untouched and reported with created=false.
func (r *SQLRepo) CreateUser(ctx context.Context, cfg *domain.UserConfig) (bool, error) {
	if cfg == nil {
		return false, errors.New("nil user config")
	}
	created := cfg.CreatedAt.UTC().Unix()
	if cfg.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, r.d.rebind(`
		INSERT INTO users (`+configColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id) DO NOTHING`),
		cfg.ChatID, created, cfg.TZ, cfg.EatingStartM, cfg.EatingEndM,
		cfg.WaterGoalMl, cfg.VerifyHandle, boolToInt(cfg.VerifyEnabled),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, r.d.rebind(`
		INSERT INTO state (chat_id) VALUES (?)
		ON CONFLICT (chat_id) DO NOTHING`), cfg.ChatID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetConfig returns a user's settings by chatID or ErrNotFound.
func (r *SQLRepo) GetConfig(ctx context.Context, chatID int64) (*domain.UserConfig, error) {
	row := r.db.QueryRowContext(ctx, r.d.rebind(`
		SELECT `+configColumns+`
		FROM users
		WHERE chat_id = ?`),
		chatID,
	)
	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cfg, err
}

// SaveConfig overwrites the mutable settings of an existing user.
func (r *SQLRepo) SaveConfig(ctx context.Context, cfg *domain.UserConfig) error {
	res, err := r.db.ExecContext(ctx, r.d.rebind(`
		UPDATE users SET
			tz             = ?,
			eating_start_m = ?,
			eating_end_m   = ?,
			water_goal_ml  = ?,
			verify_handle  = ?,
			verify_enabled = ?
		WHERE chat_id = ?`),
		cfg.TZ, cfg.EatingStartM, cfg.EatingEndM, cfg.WaterGoalMl,
		cfg.VerifyHandle, boolToInt(cfg.VerifyEnabled), cfg.ChatID,
	)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// GetState returns a user's timing state by chatID or ErrNotFound.
func (r *SQLRepo) GetState(ctx context.Context, chatID int64) (*domain.UserState, error) {
	row := r.db.QueryRowContext(ctx, r.d.rebind(`
		SELECT `+stateColumns+`
		FROM state
		WHERE chat_id = ?`),
		chatID,
	)
	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return st, err
}

// ApplyStateDelta updates the delta's fields in a single statement.
func (r *SQLRepo) ApplyStateDelta(ctx context.Context, chatID int64, d domain.StateDelta) error {
	return applyDelta(ctx, r.db, r.d, chatID, d)
}

// RecordAction logs a user command and applies its state change atomically.
func (r *SQLRepo) RecordAction(ctx context.Context, a domain.Action, d domain.StateDelta) error {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	if a.ID == "" {
		a.ID = ulid.MustNew(ulid.Timestamp(a.At), rand.Reader).String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, r.d.rebind(`
		INSERT INTO actions (id, chat_id, type, amount_ml, at)
		VALUES (?, ?, ?, ?, ?)`),
		a.ID, a.ChatID, string(a.Type), a.AmountMl, a.At.UTC().Unix(),
	); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	if err := applyDelta(ctx, tx, r.d, a.ChatID, d); err != nil {
		return err
	}
	return tx.Commit()
}

// SumWater totals WATER amounts with from <= at < to.
func (r *SQLRepo) SumWater(ctx context.Context, chatID int64, from, to time.Time) (int, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, r.d.rebind(`
		SELECT SUM(amount_ml)
		FROM actions
		WHERE chat_id = ? AND type = ? AND at >= ? AND at < ?`),
		chatID, string(domain.ActionWater), from.UTC().Unix(), to.UTC().Unix(),
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}

// ListUsers returns every chat id in ascending order.
func (r *SQLRepo) ListUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id FROM users ORDER BY chat_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyDelta(ctx context.Context, ex execer, d dialect, chatID int64, delta domain.StateDelta) error {
	sets, args := deltaAssignments(delta)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, chatID)
	res, err := ex.ExecContext(ctx,
		d.rebind(`UPDATE state SET `+strings.Join(sets, ", ")+` WHERE chat_id = ?`),
		args...,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
