// Package session implements cookie-backed server-side sessions. The
// browser only ever holds an opaque UUID in the user_token cookie; the
// OAuth token and account identity live in the Store under that id.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/store"
)

// CookieName is the session cookie. The name is part of the app's external
// surface (it is what users see and clear), so it stays stable.
const CookieName = "user_token"

// TTL is how long a session lives without a token refresh. Each refresh
// rewrites the session and restarts the clock.
const TTL = 30 * 24 * time.Hour

// Session is the server-side session payload.
type Session struct {
	Token   oauth2.Token   `json:"token"`
	Account reddit.Account `json:"account"`
}

// viewer returns the reddit.Viewer for this session, with a token source
// that persists refreshed tokens back to the store.
func (s *Session) viewer(m *Manager, id string, base oauth2.TokenSource) reddit.Viewer {
	return reddit.Viewer{
		Name:   s.Account.Name,
		Tokens: &persistingSource{mgr: m, id: id, sess: s, base: base},
	}
}

// Manager creates, loads and destroys sessions.
type Manager struct {
	store  store.Store
	oauth  *oauth2.Config
	secure bool
	http   *http.Client
}

// NewManager creates a session manager. secure controls the cookie's
// Secure flag. httpClient is used for token requests and must already
// send the Reddit user agent; nil falls back to http.DefaultClient.
func NewManager(st store.Store, oauthCfg *oauth2.Config, secure bool, httpClient *http.Client) *Manager {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Manager{store: st, oauth: oauthCfg, secure: secure, http: httpClient}
}

// oauthContext routes x/oauth2's token requests through the manager's
// http client.
func (m *Manager) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.http)
}

// Mint returns a fresh session id. It doubles as the OAuth state parameter
// during login.
func (m *Manager) Mint() string {
	return uuid.NewString()
}

// SetCookie attaches the session cookie to the response.
func (m *Manager) SetCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(TTL.Seconds()),
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// CookieID returns the raw session id from the request cookie, or "".
func (m *Manager) CookieID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Load returns the session for the request's cookie, or nil when the
// request is anonymous or the session has expired.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, string) {
	id := m.CookieID(r)
	if id == "" {
		return nil, ""
	}

	data, err := m.store.Get(ctx, store.PrefixSession+id)
	if err != nil {
		return nil, ""
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, ""
	}
	return &sess, id
}

// Save writes the session under id with the session TTL.
func (m *Manager) Save(ctx context.Context, id string, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, store.PrefixSession+id, data, TTL); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

// Destroy removes the session from the store and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, id string) error {
	m.ClearCookie(w)
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, store.PrefixSession+id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Viewer returns the reddit.Viewer for the request: the logged-in user
// when a valid session exists, anonymous otherwise. The returned token
// source auto-refreshes and persists refreshed tokens back to the session.
func (m *Manager) Viewer(ctx context.Context, r *http.Request) (reddit.Viewer, *Session, string) {
	sess, id := m.Load(ctx, r)
	if sess == nil {
		return reddit.Anonymous(), nil, ""
	}
	base := m.oauth.TokenSource(m.oauthContext(ctx), &sess.Token)
	return sess.viewer(m, id, base), sess, id
}

// persistingSource wraps the oauth2 refresh source and writes refreshed
// tokens back to the session store, so a refresh survives the request.
type persistingSource struct {
	mgr  *Manager
	id   string
	sess *Session
	base oauth2.TokenSource
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.sess.Token.AccessToken {
		p.sess.Token = *tok
		if err := p.mgr.Save(context.Background(), p.id, p.sess); err != nil {
			return nil, fmt.Errorf("persisting refreshed token: %w", err)
		}
	}
	return tok, nil
}

// ErrStateMismatch is returned by Exchange when the OAuth state parameter
// does not match the session cookie.
var ErrStateMismatch = errors.New("session: oauth state does not match cookie")

// Exchange completes the authorization-code flow: it verifies state
// against the cookie, swaps the code for a token, fetches the account
// identity and persists the session under the cookie id.
func (m *Manager) Exchange(ctx context.Context, client *reddit.Client, r *http.Request, code, state string) (*Session, error) {
	id := m.CookieID(r)
	if id == "" || id != state {
		return nil, ErrStateMismatch
	}

	tok, err := m.oauth.Exchange(m.oauthContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	acct, err := client.Me(ctx, reddit.Viewer{Tokens: oauth2.StaticTokenSource(tok)})
	if err != nil {
		return nil, fmt.Errorf("fetching identity: %w", err)
	}

	sess := &Session{Token: *tok, Account: *acct}
	if err := m.Save(ctx, id, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AuthURL returns the Reddit authorize URL for a login attempt, with
// duration=permanent so the exchange yields a refresh token.
func (m *Manager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("duration", "permanent"))
}
