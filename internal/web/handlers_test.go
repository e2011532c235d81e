package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Jackevansevo/jeddit/internal/config"
	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/session"
	"github.com/Jackevansevo/jeddit/internal/store"
)

const listingJSON = `{
  "kind": "Listing",
  "data": {
    "after": "t3_next",
    "children": [
      {"kind": "t3", "data": {
        "id": "abc", "name": "t3_abc", "title": "Hello from the fake API",
        "author": "someone", "subreddit": "popular",
        "permalink": "/r/popular/comments/abc/hello/",
        "url": "https://example.com", "domain": "example.com",
        "score": 42, "num_comments": 7, "created_utc": 1700000000
      }}
    ]
  }
}`

const commentsJSON = `[
  {"kind": "Listing", "data": {"children": [
    {"kind": "t3", "data": {
      "id": "abc", "name": "t3_abc", "title": "A self post",
      "author": "op", "subreddit": "golang", "selftext": "**hello** world",
      "is_self": true, "score": 10, "num_comments": 1, "created_utc": 1700000000
    }}
  ]}},
  {"kind": "Listing", "data": {"children": [
    {"kind": "t1", "data": {
      "id": "c1", "name": "t1_c1", "author": "op", "body": "first comment",
      "score": 5, "created_utc": 1700000100, "replies": ""
    }}
  ]}}
]`

type fixture struct {
	handlers *Handlers
	router   chi.Router
	sessions *session.Manager
	store    *store.Memory
	apiPaths []string
	apiCalls atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{store: store.NewMemory()}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/access_token":
			_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600,"refresh_token":"rt"}`))
		case r.URL.Path == "/api/v1/me":
			_, _ = w.Write([]byte(`{"name":"someone","link_karma":10,"comment_karma":20}`))
		case strings.Contains(r.URL.Path, "/comments/"):
			f.apiCalls.Add(1)
			f.apiPaths = append(f.apiPaths, r.URL.Path)
			_, _ = w.Write([]byte(commentsJSON))
		default:
			f.apiCalls.Add(1)
			f.apiPaths = append(f.apiPaths, r.URL.Path)
			_, _ = w.Write([]byte(listingJSON))
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

	renderer, err := NewRenderer(os.DirFS("../.."))
	require.NoError(t, err)

	cfg := &config.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURI:  "https://example.test/auth",
		File: config.FileConfig{
			Pinned:         []string{"golang"},
			FrontSubreddit: "popular",
			ListingLimit:   25,
			PageCacheTTL:   time.Minute,
		},
	}

	f.handlers = New(client, f.sessions, renderer, cfg, testLogger())

	r := chi.NewRouter()
	f.handlers.Routes(r)
	f.router = r
	return f
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

func (f *fixture) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestFrontAnonymous(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello from the fake API")

	// Anonymous front page falls back to the configured subreddit.
	require.NotEmpty(t, f.apiPaths)
	assert.Equal(t, "/r/popular", f.apiPaths[0])
}

func TestFrontLoggedIn(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "someone")

	rec := f.get("/", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "someone")

	// Logged-in users get the personalized front page, not a subreddit.
	require.NotEmpty(t, f.apiPaths)
	assert.Equal(t, "/", f.apiPaths[0])
}

func TestFrontCategory(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/new")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/r/popular/new", f.apiPaths[0])
}

func TestUnknownCategory404(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/definitely-not-a-sort")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 0, f.apiCalls.Load())
}

func TestSubredditListing(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/r/golang/top?t=week")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/r/golang/top", f.apiPaths[0])

	// Pagination link carries the after cursor.
	assert.Contains(t, rec.Body.String(), "after=t3_next")
}

func TestPostPage(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/r/golang/comments/abc/a_self_post")
	assert.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "A self post")
	assert.Contains(t, body, "first comment")
	// Markdown is rendered, not escaped.
	assert.Contains(t, body, "<strong>hello</strong>")
}

func TestSearch(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/search?q=generics")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, f.apiPaths)
	assert.Equal(t, "/search", f.apiPaths[0])

	// Empty query renders the form without calling the API.
	before := f.apiCalls.Load()
	rec = f.get("/search")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before, f.apiCalls.Load())
}

func TestSubsRequiresLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/subs")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/login")
	assert.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/authorize", loc.Path)
	assert.Equal(t, "permanent", loc.Query().Get("duration"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)
	// The state parameter is the session cookie value.
	assert.Equal(t, cookies[0].Value, loc.Query().Get("state"))
}

func TestAuthCallback(t *testing.T) {
	f := newFixture(t)

	id := f.sessions.Mint()
	cookie := &http.Cookie{Name: session.CookieName, Value: id}

	rec := f.get("/auth?code=thecode&state="+id, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	// Session now exists with the fetched identity.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, _ := f.sessions.Load(context.Background(), req)
	require.NotNil(t, sess)
	assert.Equal(t, "someone", sess.Account.Name)
}

func TestAuthStateMismatch(t *testing.T) {
	f := newFixture(t)

	cookie := &http.Cookie{Name: session.CookieName, Value: "cookie-id"}
	rec := f.get("/auth?code=thecode&state=forged", cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDenied(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/auth?error=access_denied")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "login canceled")
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	cookie := f.loginAs(t, "someone")

	rec := f.get("/logout", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, _ := f.sessions.Load(context.Background(), req)
	assert.Nil(t, sess)
}
