// Package notify renders reminder events into chat messages and hands them to the transport.
package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

// ErrDispatch wraps delivery failures. They are logged and never retried here.
var ErrDispatch = errors.New("dispatch failed")

// Sender is the notification sink. telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Data feeds the templates.
type Data struct {
	Hours   int
	WaterMl int
	GoalMl  int
	Day     string
}

// Dispatcher picks a random template for each event, renders it and sends it.
type Dispatcher struct {
	sender  Sender
	log     *zap.Logger
	pools   map[string][]*template.Template
	limiter *rate.Limiter
	pick    func(n int) int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLimiter throttles sends; Telegram rejects bursts above ~30 msg/s.
func WithLimiter(l *rate.Limiter) Option { return func(d *Dispatcher) { d.limiter = l } }

// WithPicker replaces the random pool index choice.
func WithPicker(pick func(n int) int) Option { return func(d *Dispatcher) { d.pick = pick } }

// NewDispatcher parses every template up front so a bad pool fails at startup.
func NewDispatcher(sender Sender, log *zap.Logger, t Templates, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		sender: sender,
		log:    log,
		pools:  make(map[string][]*template.Template, len(t)),
		pick:   rand.IntN,
	}
	for key, pool := range t {
		for i, src := range pool {
			tpl, err := template.New(fmt.Sprintf("%s#%d", key, i)).Option("missingkey=error").Parse(src)
			if err != nil {
				return nil, fmt.Errorf("template %s#%d: %w", key, i, err)
			}
			d.pools[key] = append(d.pools[key], tpl)
		}
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Render returns the text for ev.
func (d *Dispatcher) Render(ev domain.ReminderEvent, data Data) (string, error) {
	key := Key(ev)
	pool := d.pools[key]
	if len(pool) == 0 {
		return "", fmt.Errorf("no templates for %q", key)
	}
	if ev.Kind == domain.KindFastingMilestone && data.Hours == 0 {
		data.Hours = ev.Hours
	}
	var b strings.Builder
	if err := pool[d.pick(len(pool))].Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return b.String(), nil
}

// Dispatch renders and sends ev. Failures are logged and returned wrapped in ErrDispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.ReminderEvent, data Data) error {
	text, err := d.Render(ev, data)
	if err != nil {
		d.log.Error("render failed", zap.Error(err), zap.Int64("chatID", ev.ChatID), zap.String("kind", string(ev.Kind)))
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrDispatch, err)
		}
	}
	if err := d.sender.SendMessage(ev.ChatID, text); err != nil {
		d.log.Error("send failed", zap.Error(err), zap.Int64("chatID", ev.ChatID), zap.String("kind", string(ev.Kind)))
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	d.log.Debug("notification sent", zap.Int64("chatID", ev.ChatID), zap.String("kind", Key(ev)))
	return nil
}
