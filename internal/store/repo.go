package store

import (
	"context"
	"errors"
	"time"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

// ErrNotFound is returned when a chat has no row.
var ErrNotFound = errors.New("not found")

// Repo defines storage operations for user configuration, timing state and the action log.
// Every method touching state updates a single user's record atomically.
type Repo interface {
	// CreateUser inserts cfg and an empty state row unless the chat already exists.
	CreateUser(ctx context.Context, cfg *domain.UserConfig) (created bool, err error)
	GetConfig(ctx context.Context, chatID int64) (*domain.UserConfig, error)
	SaveConfig(ctx context.Context, cfg *domain.UserConfig) error
	GetState(ctx context.Context, chatID int64) (*domain.UserState, error)
	ApplyStateDelta(ctx context.Context, chatID int64, d domain.StateDelta) error
	// RecordAction appends a to the action log and applies d in one transaction.
	RecordAction(ctx context.Context, a domain.Action, d domain.StateDelta) error
	// SumWater totals WATER actions logged in [from, to).
	SumWater(ctx context.Context, chatID int64, from, to time.Time) (int, error)
	ListUsers(ctx context.Context) ([]int64, error)
	Ping(ctx context.Context) error
	Close() error
}
