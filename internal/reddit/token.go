package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/Jackevansevo/jeddit/internal/metrics"
	"github.com/Jackevansevo/jeddit/internal/store"
)

// AuthBaseURL is where token and authorize endpoints live. API calls go to
// oauth.reddit.com instead.
const AuthBaseURL = "https://www.reddit.com"

// Scopes requested during user login.
var Scopes = []string{"identity", "mysubreddits", "read", "vote"}

// Endpoint returns Reddit's OAuth2 endpoint rooted at authBase. Reddit
// authenticates token requests with HTTP basic auth.
func Endpoint(authBase string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   authBase + "/api/v1/authorize",
		TokenURL:  authBase + "/api/v1/access_token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
}

// NewOAuthConfig builds the authorization-code flow config for user logins.
func NewOAuthConfig(clientID, clientSecret, redirectURI, authBase string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint:     Endpoint(authBase),
	}
}

// AppTokenSource provides the application-only bearer token used for
// anonymous browsing, via the client_credentials grant. The token is cached
// in the Store so restarts and multiple processes share it.
type AppTokenSource struct {
	cc    clientcredentials.Config
	store store.Store
	http  *http.Client
	mu    sync.Mutex
}

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

// NewAppTokenSource creates an app token source. httpClient must already
// send the Reddit user agent; pass nil for http.DefaultClient.
func NewAppTokenSource(clientID, clientSecret, authBase string, st store.Store, httpClient *http.Client) *AppTokenSource {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AppTokenSource{
		cc: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     authBase + "/api/v1/access_token",
			AuthStyle:    oauth2.AuthStyleInHeader,
			EndpointParams: url.Values{
				"duration": {"permanent"},
			},
		},
		store: st,
		http:  httpClient,
	}
}

// Token returns a valid app token, fetching a new one when the cached token
// is missing or about to expire.
func (s *AppTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tok, ok := s.cached(ctx, time.Minute); ok {
		return tok, nil
	}
	return s.fetch(ctx)
}

// EnsureFresh fetches a new token when the cached one has less than
// minRemaining left. Called by the background token keeper so anonymous
// requests never block on a token fetch.
func (s *AppTokenSource) EnsureFresh(ctx context.Context, minRemaining time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cached(ctx, minRemaining); ok {
		return nil
	}
	_, err := s.fetch(ctx)
	return err
}

// Invalidate drops the cached token. Called when the API rejects it.
func (s *AppTokenSource) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, store.KeyAppToken)
}

func (s *AppTokenSource) cached(ctx context.Context, minRemaining time.Duration) (string, bool) {
	data, err := s.store.Get(ctx, store.KeyAppToken)
	if err != nil {
		return "", false
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", false
	}
	if time.Until(tok.Expiry) < minRemaining {
		return "", false
	}
	return tok.AccessToken, true
}

func (s *AppTokenSource) fetch(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.http)

	tok, err := s.cc.Token(ctx)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return "", fmt.Errorf("fetching app token: %w", err)
	}
	metrics.TokenRefreshes.WithLabelValues("ok").Inc()

	cached := cachedToken{AccessToken: tok.AccessToken, Expiry: tok.Expiry}
	data, err := json.Marshal(cached)
	if err != nil {
		return "", fmt.Errorf("encoding app token: %w", err)
	}

	ttl := time.Until(tok.Expiry)
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.store.Set(ctx, store.KeyAppToken, data, ttl); err != nil {
		return "", fmt.Errorf("caching app token: %w", err)
	}
	return tok.AccessToken, nil
}
