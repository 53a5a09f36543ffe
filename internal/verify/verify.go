// Package verify checks whether a user posted evidence of compliance during their eating window.
package verify

import (
	"context"
	"errors"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

const (
	DefaultBackoff = 5 * time.Second
	DefaultTimeout = 10 * time.Second
	attempts       = 2
)

// ErrInconclusive marks lookups that produced no usable answer.
var ErrInconclusive = errors.New("inconclusive lookup")

// Report is the classified outcome of one successful lookup.
type Report struct {
	Checked int // posts inside the checked period
	Matched int // of those, posts carrying the evidence marker
}

// Source performs one external lookup for handle covering posts created at or after since.
// Any error means the lookup was inconclusive.
type Source interface {
	FetchStatus(ctx context.Context, handle string, since time.Time) (*Report, error)
}

// Verifier wraps a Source with the tri-state policy: a conclusive first answer is returned
// as is; an inconclusive one is retried once after a fixed backoff, then reported as unknown.
type Verifier struct {
	src     Source
	log     *zap.Logger
	backoff time.Duration
	timeout time.Duration
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithBackoff sets the wait before the single retry.
func WithBackoff(d time.Duration) Option { return func(v *Verifier) { v.backoff = d } }

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option { return func(v *Verifier) { v.timeout = d } }

// New creates a Verifier over src.
func New(src Source, log *zap.Logger, opts ...Option) *Verifier {
	v := &Verifier{src: src, log: log, backoff: DefaultBackoff, timeout: DefaultTimeout}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Check returns Compliant or NonCompliant from the first conclusive lookup, or Unknown
// once both attempts were inconclusive or ctx ended.
func (v *Verifier) Check(ctx context.Context, handle string, since time.Time) domain.Verdict {
	verdict := domain.VerdictUnknown
	err := retry.Do(
		func() error {
			actx, cancel := context.WithTimeout(ctx, v.timeout)
			defer cancel()
			rep, err := v.src.FetchStatus(actx, handle, since)
			if err != nil {
				return err
			}
			if rep.Matched > 0 {
				verdict = domain.VerdictCompliant
			} else {
				verdict = domain.VerdictNonCompliant
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(v.backoff),
		retry.MaxDelay(v.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			v.log.Debug("verification attempt inconclusive",
				zap.String("handle", handle), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		v.log.Warn("verification inconclusive", zap.String("handle", handle), zap.Error(err))
		return domain.VerdictUnknown
	}
	return verdict
}
