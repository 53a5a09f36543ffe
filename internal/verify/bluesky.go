package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBlueskyAPI is the unauthenticated public AppView.
const DefaultBlueskyAPI = "https://public.api.bsky.app"

// Bluesky looks for posts carrying an evidence tag in a handle's author feed.
type Bluesky struct {
	baseURL string
	tag     string
	client  *http.Client
}

// NewBluesky creates a Source over the public Bluesky API. tag is matched case-insensitively.
func NewBluesky(baseURL, tag string, client *http.Client) *Bluesky {
	if baseURL == "" {
		baseURL = DefaultBlueskyAPI
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Bluesky{
		baseURL: strings.TrimRight(baseURL, "/"),
		tag:     strings.ToLower(tag),
		client:  client,
	}
}

type authorFeed struct {
	Feed *[]struct {
		Post struct {
			URI    string `json:"uri"`
			Record struct {
				Text      string `json:"text"`
				CreatedAt string `json:"createdAt"`
			} `json:"record"`
			IndexedAt string `json:"indexedAt"`
		} `json:"post"`
	} `json:"feed"`
}

// FetchStatus performs one getAuthorFeed call. Transport errors, non-200 statuses and
// bodies without a feed are reported as ErrInconclusive.
func (b *Bluesky) FetchStatus(ctx context.Context, handle string, since time.Time) (*Report, error) {
	apiURL := fmt.Sprintf("%s/xrpc/app.bsky.feed.getAuthorFeed?actor=%s&limit=50&filter=posts_no_replies",
		b.baseURL, url.QueryEscape(strings.TrimPrefix(handle, "@")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "fastbot/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrInconclusive, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var feed authorFeed
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: decoding feed: %v", ErrInconclusive, err)
	}
	if feed.Feed == nil {
		return nil, fmt.Errorf("%w: response has no feed", ErrInconclusive)
	}

	rep := &Report{}
	for _, item := range *feed.Feed {
		created := item.Post.Record.CreatedAt
		if created == "" {
			created = item.Post.IndexedAt
		}
		ts, err := time.Parse(time.RFC3339, created)
		if err != nil || ts.Before(since) {
			continue
		}
		rep.Checked++
		if b.tag == "" || strings.Contains(strings.ToLower(item.Post.Record.Text), b.tag) {
			rep.Matched++
		}
	}
	return rep, nil
}
