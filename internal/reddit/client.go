// Package reddit is a typed client for the Reddit API, covering the
// listing, comment, search, identity and vote endpoints the web UI needs.
// Successful GET responses are cached in the Store, and rate-limit headers
// are tracked per viewer.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/Jackevansevo/jeddit/internal/metrics"
	"github.com/Jackevansevo/jeddit/internal/store"
)

// DefaultBaseURL is the authenticated Reddit API host.
const DefaultBaseURL = "https://oauth.reddit.com"

// ErrUnauthorized is returned when a user's token is rejected by the API
// and cannot be refreshed. Handlers respond by destroying the session.
var ErrUnauthorized = errors.New("reddit: unauthorized")

// StatusError is a non-2xx response from the Reddit API.
type StatusError struct {
	Code int
	Body string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("reddit api error %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// Viewer identifies whose credentials a request uses. The zero Viewer is
// anonymous and uses the application-only token.
type Viewer struct {
	Name   string // Reddit account name, empty for anonymous
	Tokens oauth2.TokenSource
}

// Anonymous is the viewer for requests made with the app token.
func Anonymous() Viewer { return Viewer{} }

// Key is the viewer discriminator used in cache and stats keys.
func (v Viewer) Key() string {
	if v.Name == "" {
		return "anon"
	}
	return v.Name
}

// RateStatus is the most recent rate-limit snapshot reported by the API.
// Reddit sends these as float-valued headers.
type RateStatus struct {
	Used      float64   `json:"used"`
	Remaining float64   `json:"remaining"`
	Reset     float64   `json:"reset"` // seconds until the window resets
	At        time.Time `json:"at"`
}

// Options configures a Client.
type Options struct {
	BaseURL    string // defaults to DefaultBaseURL
	App        *AppTokenSource
	Store      store.Store
	CacheTTL   time.Duration // how long successful GET responses are cached
	UserAgent  string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Reddit API.
type Client struct {
	baseURL  string
	app      *AppTokenSource
	store    store.Store
	cacheTTL time.Duration
	http     *http.Client
	logger   *slog.Logger
}

// NewClient creates a Client. Every request carries opts.UserAgent; Reddit
// throttles generic user agents hard.
func NewClient(opts Options) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	httpClient = withUserAgent(httpClient, opts.UserAgent)

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  base,
		app:      opts.App,
		store:    opts.Store,
		cacheTTL: opts.CacheTTL,
		http:     httpClient,
		logger:   logger,
	}
}

// NewHTTPClient returns an http.Client that sends ua on every request.
// Reddit rejects or throttles requests without a descriptive user agent,
// token requests included.
func NewHTTPClient(ua string) *http.Client {
	return withUserAgent(&http.Client{Timeout: 15 * time.Second}, ua)
}

// Listing fetches any listing endpoint: the front page (""), a front page
// sort ("best"), or a subreddit path ("r/golang/top").
func (c *Client) Listing(ctx context.Context, v Viewer, path string, query url.Values) (*Listing, error) {
	raw, err := c.get(ctx, v, "listing", "/"+strings.Trim(path, "/"), query, true)
	if err != nil {
		return nil, err
	}
	return parseListing(raw)
}

// Comments fetches a post and its comment tree.
func (c *Client) Comments(ctx context.Context, v Viewer, subreddit, id, slug string, query url.Values) (*Link, []*Comment, error) {
	path := fmt.Sprintf("/r/%s/comments/%s/%s", url.PathEscape(subreddit), url.PathEscape(id), url.PathEscape(slug))
	raw, err := c.get(ctx, v, "comments", path, query, true)
	if err != nil {
		return nil, nil, err
	}
	return parseComments(raw)
}

// Search runs a search, site-wide when subreddit is empty or restricted to
// one subreddit otherwise.
func (c *Client) Search(ctx context.Context, v Viewer, subreddit, q string, query url.Values) (*Listing, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("q", q)
	path := "/search"
	if subreddit != "" {
		path = fmt.Sprintf("/r/%s/search", url.PathEscape(subreddit))
		query.Set("restrict_sr", "1")
	}
	raw, err := c.get(ctx, v, "search", path, query, true)
	if err != nil {
		return nil, err
	}
	return parseListing(raw)
}

// Me returns the viewer's account identity. Requires a user token.
func (c *Client) Me(ctx context.Context, v Viewer) (*Account, error) {
	raw, err := c.get(ctx, v, "me", "/api/v1/me", nil, false)
	if err != nil {
		return nil, err
	}
	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("decoding account: %w", err)
	}
	return &acct, nil
}

// MySubreddits returns the subreddits the viewer subscribes to. Requires a
// user token.
func (c *Client) MySubreddits(ctx context.Context, v Viewer) ([]*Subreddit, error) {
	if v.Tokens == nil {
		return nil, ErrUnauthorized
	}
	query := url.Values{"limit": {"100"}}
	raw, err := c.get(ctx, v, "subs", "/subreddits/mine/subscriber", query, false)
	if err != nil {
		return nil, err
	}
	return parseSubreddits(raw)
}

// Vote casts a vote on a thing. dir is 1 (up), -1 (down) or 0 (clear).
// Requires a user token.
func (c *Client) Vote(ctx context.Context, v Viewer, fullname string, dir int) error {
	if v.Tokens == nil {
		return ErrUnauthorized
	}
	if dir < -1 || dir > 1 {
		return fmt.Errorf("invalid vote direction %d", dir)
	}
	form := url.Values{
		"id":  {fullname},
		"dir": {strconv.Itoa(dir)},
	}
	return c.postForm(ctx, v, "vote", "/api/vote", form)
}

// RateStatus returns the last rate-limit snapshot recorded for the viewer,
// or nil when none has been seen yet.
func (c *Client) RateStatus(ctx context.Context, v Viewer) *RateStatus {
	data, err := c.store.Get(ctx, store.PrefixStats+v.Key())
	if err != nil {
		return nil
	}
	var rs RateStatus
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil
	}
	return &rs
}

// get performs an authenticated GET, serving and filling the page cache
// for cacheable endpoints. The cache key carries the viewer discriminator
// so one user's personalized listing never serves another's.
func (c *Client) get(ctx context.Context, v Viewer, endpoint, path string, query url.Values, cacheable bool) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	cacheKey := store.PrefixPage + v.Key() + ":" + target
	if cacheable && c.cacheTTL > 0 {
		if data, err := c.store.Get(ctx, cacheKey); err == nil {
			metrics.CacheHits.Inc()
			c.logger.Debug("cache hit", "url", target)
			return data, nil
		}
		metrics.CacheMisses.Inc()
	}

	body, err := c.do(ctx, v, endpoint, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	if cacheable && c.cacheTTL > 0 {
		if err := c.store.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
			c.logger.Warn("caching response failed", "url", target, "error", err)
		}
	}
	return body, nil
}

func (c *Client) postForm(ctx context.Context, v Viewer, endpoint, path string, form url.Values) error {
	_, err := c.do(ctx, v, endpoint, http.MethodPost, c.baseURL+path, form)
	return err
}

// do performs one authenticated request. A 401 on the app token means the
// token went stale: it is invalidated, refetched and the request retried
// once. A 401 on a user token is surfaced as ErrUnauthorized.
func (c *Client) do(ctx context.Context, v Viewer, endpoint, method, target string, form url.Values) ([]byte, error) {
	retried := false
	for {
		token, err := c.token(ctx, v)
		if err != nil {
			return nil, err
		}

		body, status, err := c.roundTrip(ctx, v, endpoint, method, target, form, token)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			return body, nil

		case status == http.StatusUnauthorized && v.Tokens != nil:
			return nil, fmt.Errorf("%w: user token rejected", ErrUnauthorized)

		case status == http.StatusUnauthorized && !retried:
			retried = true
			c.logger.Info("app token rejected, refetching", "url", target)
			if err := c.app.Invalidate(ctx); err != nil {
				return nil, fmt.Errorf("invalidating app token: %w", err)
			}

		default:
			return nil, StatusError{Code: status, Body: string(body)}
		}
	}
}

func (c *Client) roundTrip(ctx context.Context, v Viewer, endpoint, method, target string, form url.Values, token string) ([]byte, int, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+token)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("requesting %s: %w", target, err)
	}
	defer resp.Body.Close()

	metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	c.recordRateHeaders(ctx, v, resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response from %s: %w", target, err)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) token(ctx context.Context, v Viewer) (string, error) {
	if v.Tokens != nil {
		tok, err := v.Tokens.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return tok.AccessToken, nil
	}
	return c.app.Token(ctx)
}

// recordRateHeaders stores the latest x-ratelimit-* snapshot for the
// viewer and updates the prometheus gauge. The snapshot is rendered in the
// page footer.
func (c *Client) recordRateHeaders(ctx context.Context, v Viewer, h http.Header) {
	used, uErr := strconv.ParseFloat(h.Get("x-ratelimit-used"), 64)
	remaining, rErr := strconv.ParseFloat(h.Get("x-ratelimit-remaining"), 64)
	reset, sErr := strconv.ParseFloat(h.Get("x-ratelimit-reset"), 64)
	if uErr != nil && rErr != nil && sErr != nil {
		return
	}

	rs := RateStatus{Used: used, Remaining: remaining, Reset: reset, At: time.Now().UTC()}
	c.logger.Debug("rate limit",
		"viewer", v.Key(),
		"used", rs.Used,
		"remaining", rs.Remaining,
		"reset", rs.Reset,
	)
	metrics.RateRemaining.WithLabelValues(v.Key()).Set(rs.Remaining)

	data, err := json.Marshal(rs)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, store.PrefixStats+v.Key(), data, 0); err != nil {
		c.logger.Warn("storing rate status failed", "error", err)
	}
}

// withUserAgent wraps client so every request carries ua.
func withUserAgent(client *http.Client, ua string) *http.Client {
	wrapped := *client
	base := wrapped.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped.Transport = uaTransport{base: base, ua: ua}
	return &wrapped
}

type uaTransport struct {
	base http.RoundTripper
	ua   string
}

func (t uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(clone)
}
