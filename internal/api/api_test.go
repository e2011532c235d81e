package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/session"
	"github.com/Jackevansevo/jeddit/internal/store"
)

type fixture struct {
	router   chi.Router
	sessions *session.Manager
	store    *store.Memory
	voteForm url.Values
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{store: store.NewMemory()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/access_token":
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
		case "/api/vote":
			require.NoError(t, r.ParseForm())
			f.voteForm = r.PostForm
			_, _ = w.Write([]byte(`{}`))
		default:
			w.Header().Set("x-ratelimit-used", "3")
			w.Header().Set("x-ratelimit-remaining", "597")
			w.Header().Set("x-ratelimit-reset", "60")
			_, _ = w.Write([]byte(`{"kind":"Listing","data":{"children":[]}}`))
		}
	}))
	t.Cleanup(srv.Close)

	app := reddit.NewAppTokenSource("id", "secret", srv.URL, f.store, nil)
	client := reddit.NewClient(reddit.Options{
		BaseURL:   srv.URL,
		App:       app,
		Store:     f.store,
		UserAgent: "jeddit-test/0.1",
	})

	oauthCfg := reddit.NewOAuthConfig("id", "secret", "https://example.test/auth", srv.URL)
	f.sessions = session.NewManager(f.store, oauthCfg, false, nil)

	apiSrv := New(client, f.sessions, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) { apiSrv.Mount(r) })
	f.router = r
	return f
}

func (f *fixture) loginAs(t *testing.T, name string) *http.Cookie {
	t.Helper()
	id := f.sessions.Mint()
	err := f.sessions.Save(context.Background(), id, &session.Session{
		Token:   oauth2.Token{AccessToken: "user-token", Expiry: time.Now().Add(time.Hour)},
		Account: reddit.Account{Name: name},
	})
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: id}
}

func (f *fixture) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestVoteRequiresLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/vote", map[string]any{"id": "t3_abc", "dir": 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVote(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "someone")

	rec := f.do(http.MethodPost, "/api/vote", map[string]any{"id": "t3_abc", "dir": -1}, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "t3_abc", f.voteForm.Get("id"))
	assert.Equal(t, "-1", f.voteForm.Get("dir"))
}

func TestVoteValidation(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "someone")

	tests := []struct {
		name string
		body any
	}{
		{"missing id", map[string]any{"dir": 1}},
		{"bad dir", map[string]any{"id": "t3_abc", "dir": 5}},
		{"not json", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/api/vote", tt.body, cookie)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSessionAnonymous(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		LoggedIn bool   `json:"logged_in"`
		Name     string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.LoggedIn)
	assert.Empty(t, resp.Name)
}

func TestSessionLoggedIn(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "someone")

	rec := f.do(http.MethodGet, "/api/session", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		LoggedIn bool   `json:"logged_in"`
		Name     string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.LoggedIn)
	assert.Equal(t, "someone", resp.Name)
}
