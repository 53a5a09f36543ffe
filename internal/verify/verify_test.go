package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VladDoesAI/telegram-fastiing-bot/internal/domain"
)

// scriptedSource replays one step per call; a nil step blocks until the attempt times out.
type scriptedSource struct {
	steps []func() (*Report, error)
	calls atomic.Int32
	times []time.Time
}

func (s *scriptedSource) FetchStatus(ctx context.Context, _ string, _ time.Time) (*Report, error) {
	i := int(s.calls.Add(1)) - 1
	s.times = append(s.times, time.Now())
	if i >= len(s.steps) || s.steps[i] == nil {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.steps[i]()
}

func conclusive(matched int) func() (*Report, error) {
	return func() (*Report, error) { return &Report{Checked: 1, Matched: matched}, nil }
}

func failing() (*Report, error) { return nil, ErrInconclusive }

const testBackoff = 40 * time.Millisecond

func newTestVerifier(src Source) *Verifier {
	return New(src, zap.NewNop(), WithBackoff(testBackoff), WithTimeout(30*time.Millisecond))
}

func TestCheck_ConclusiveFirstAttemptNoRetry(t *testing.T) {
	for _, tc := range []struct {
		matched int
		want    domain.Verdict
	}{
		{1, domain.VerdictCompliant},
		{0, domain.VerdictNonCompliant},
	} {
		src := &scriptedSource{steps: []func() (*Report, error){conclusive(tc.matched), conclusive(1)}}
		got := newTestVerifier(src).Check(context.Background(), "alice", time.Time{})
		assert.Equal(t, tc.want, got)
		assert.EqualValues(t, 1, src.calls.Load())
	}
}

func TestCheck_TwoTimeoutsGiveUnknownAfterOneRetry(t *testing.T) {
	src := &scriptedSource{steps: []func() (*Report, error){nil, nil, conclusive(1)}}
	got := newTestVerifier(src).Check(context.Background(), "alice", time.Time{})
	assert.Equal(t, domain.VerdictUnknown, got)
	require.EqualValues(t, 2, src.calls.Load())
	// exactly one backoff between the attempts (each attempt itself takes ~30ms)
	gap := src.times[1].Sub(src.times[0])
	assert.GreaterOrEqual(t, gap, testBackoff)
	assert.Less(t, gap, 2*testBackoff+200*time.Millisecond)
}

func TestCheck_InconclusiveThenConclusive(t *testing.T) {
	src := &scriptedSource{steps: []func() (*Report, error){failing, conclusive(0)}}
	got := newTestVerifier(src).Check(context.Background(), "alice", time.Time{})
	assert.Equal(t, domain.VerdictNonCompliant, got)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestCheck_CanceledContextIsUnknown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &scriptedSource{steps: []func() (*Report, error){nil, nil}}
	assert.Equal(t, domain.VerdictUnknown, newTestVerifier(src).Check(ctx, "alice", time.Time{}))
}

func TestBluesky_FetchStatus(t *testing.T) {
	var gotActor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getAuthorFeed", r.URL.Path)
		gotActor = r.URL.Query().Get("actor")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"feed":[
			{"post":{"uri":"at://1","record":{"text":"Day 12 done #Fasting","createdAt":"2026-01-13T19:40:00Z"}}},
			{"post":{"uri":"at://2","record":{"text":"coffee","createdAt":"2026-01-13T15:00:00Z"}}},
			{"post":{"uri":"at://3","record":{"text":"old #fasting","createdAt":"2026-01-12T19:00:00Z"}}}
		]}`))
	}))
	defer srv.Close()

	src := NewBluesky(srv.URL, "#fasting", srv.Client())
	rep, err := src.FetchStatus(context.Background(), "@alice.bsky.social", time.Date(2026, 1, 13, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "alice.bsky.social", gotActor)
	assert.Equal(t, 2, rep.Checked)
	assert.Equal(t, 1, rep.Matched)
}

func TestBluesky_InconclusiveResponses(t *testing.T) {
	for name, h := range map[string]http.HandlerFunc{
		"rate limited": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"unexpected shape": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"posts":[]}`))
		},
		"not json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			_, err := NewBluesky(srv.URL, "#fasting", srv.Client()).FetchStatus(context.Background(), "alice", time.Time{})
			assert.True(t, errors.Is(err, ErrInconclusive), "got %v", err)
		})
	}
}

func TestBluesky_EmptyFeedIsNonCompliant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"feed":[]}`))
	}))
	defer srv.Close()

	v := newTestVerifier(NewBluesky(srv.URL, "#fasting", srv.Client()))
	assert.Equal(t, domain.VerdictNonCompliant, v.Check(context.Background(), "alice", time.Time{}))
}
