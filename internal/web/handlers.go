// Package web serves the server-rendered pages: listings, posts, search,
// subscriptions and the login flow.
package web

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Jackevansevo/jeddit/internal/config"
	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/session"
)

// categories are the listing sorts linked from the UI. Anything else 404s.
var categories = map[string]bool{
	"hot":    true,
	"new":    true,
	"rising": true,
	"top":    true,
	"best":   true,
}

// Handlers holds the dependencies of the page handlers.
type Handlers struct {
	client   *reddit.Client
	sessions *session.Manager
	renderer *Renderer
	cfg      *config.Config
	logger   *slog.Logger
}

// New creates the page handlers.
func New(client *reddit.Client, sessions *session.Manager, renderer *Renderer, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		client:   client,
		sessions: sessions,
		renderer: renderer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Routes registers the page routes. chi matches literal routes before the
// {category} parameter, so /login, /subs etc. keep working.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.Front)
	r.Get("/login", h.Login)
	r.Get("/auth", h.Auth)
	r.Get("/logout", h.Logout)
	r.Get("/subs", h.Subs)
	r.Get("/search", h.Search)
	r.Get("/{category}", h.Front)
	r.Get("/r/{subreddit}", h.Subreddit)
	r.Get("/r/{subreddit}/search", h.Search)
	r.Get("/r/{subreddit}/{category}", h.Subreddit)
	r.Get("/r/{subreddit}/comments/{id}/{slug}", h.Post)
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/static/favicon.svg", http.StatusMovedPermanently)
	})
}

// Front serves / and /{category}: the personalized front page for
// logged-in users, the configured default subreddit for everyone else.
func (h *Handlers) Front(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	if category != "" && !categories[category] {
		h.renderError(w, r, http.StatusNotFound, "no such page")
		return
	}

	viewer, sess, sessID := h.sessions.Viewer(r.Context(), r)

	path := category
	if sess == nil {
		// Anonymous front page falls back to the default subreddit.
		path = "r/" + h.cfg.File.FrontSubreddit
		if category != "" {
			path += "/" + category
		}
	}

	listing, err := h.client.Listing(r.Context(), viewer, path, h.listingQuery(r))
	if err != nil {
		h.handleAPIError(w, r, sessID, err)
		return
	}

	data := h.pageData(r, sess, viewer)
	data.Category = category
	data.Listing = listing
	h.paginate(data, r, listing)
	h.render(w, r, http.StatusOK, "listing.html", data)
}

// Subreddit serves /r/{subreddit} and /r/{subreddit}/{category}.
func (h *Handlers) Subreddit(w http.ResponseWriter, r *http.Request) {
	sub := chi.URLParam(r, "subreddit")
	category := chi.URLParam(r, "category")
	if category != "" && !categories[category] {
		h.renderError(w, r, http.StatusNotFound, "no such page")
		return
	}

	viewer, sess, sessID := h.sessions.Viewer(r.Context(), r)

	path := "r/" + sub
	if category != "" {
		path += "/" + category
	}

	listing, err := h.client.Listing(r.Context(), viewer, path, h.listingQuery(r))
	if err != nil {
		h.handleAPIError(w, r, sessID, err)
		return
	}

	data := h.pageData(r, sess, viewer)
	data.Title = "r/" + sub
	data.Subreddit = sub
	data.Category = category
	data.Listing = listing
	h.paginate(data, r, listing)
	h.render(w, r, http.StatusOK, "listing.html", data)
}

// Post serves a post with its comment tree.
func (h *Handlers) Post(w http.ResponseWriter, r *http.Request) {
	sub := chi.URLParam(r, "subreddit")
	id := chi.URLParam(r, "id")
	slug := chi.URLParam(r, "slug")

	viewer, sess, sessID := h.sessions.Viewer(r.Context(), r)

	post, comments, err := h.client.Comments(r.Context(), viewer, sub, id, slug, r.URL.Query())
	if err != nil {
		h.handleAPIError(w, r, sessID, err)
		return
	}

	data := h.pageData(r, sess, viewer)
	data.Title = post.Title
	data.Subreddit = sub
	data.Post = post
	data.Comments = comments
	h.render(w, r, http.StatusOK, "post.html", data)
}

// Search serves site-wide and per-subreddit search.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	sub := chi.URLParam(r, "subreddit")
	q := r.URL.Query().Get("q")

	viewer, sess, sessID := h.sessions.Viewer(r.Context(), r)

	data := h.pageData(r, sess, viewer)
	data.Title = "search"
	data.Subreddit = sub
	data.Query = q

	if q == "" {
		h.render(w, r, http.StatusOK, "search.html", data)
		return
	}

	listing, err := h.client.Search(r.Context(), viewer, sub, q, h.listingQuery(r))
	if err != nil {
		h.handleAPIError(w, r, sessID, err)
		return
	}

	data.Listing = listing
	h.paginate(data, r, listing)
	h.render(w, r, http.StatusOK, "search.html", data)
}

// Subs lists the user's subscribed subreddits. Login required.
func (h *Handlers) Subs(w http.ResponseWriter, r *http.Request) {
	viewer, sess, sessID := h.sessions.Viewer(r.Context(), r)
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	subs, err := h.client.MySubreddits(r.Context(), viewer)
	if err != nil {
		h.handleAPIError(w, r, sessID, err)
		return
	}

	data := h.pageData(r, sess, viewer)
	data.Title = "subscriptions"
	data.Subs = subs
	h.render(w, r, http.StatusOK, "subs.html", data)
}

// listingQuery passes the supported listing parameters through to the API
// and applies the configured page size.
func (h *Handlers) listingQuery(r *http.Request) url.Values {
	in := r.URL.Query()
	out := url.Values{}
	for _, k := range []string{"t", "after", "before", "limit", "count"} {
		if v := in.Get(k); v != "" {
			out.Set(k, v)
		}
	}
	if out.Get("limit") == "" {
		out.Set("limit", strconv.Itoa(h.cfg.File.ListingLimit))
	}
	return out
}

// paginate fills the prev/next links from the listing cursors, keeping
// the rest of the current query intact.
func (h *Handlers) paginate(data *PageData, r *http.Request, listing *reddit.Listing) {
	if listing.After != "" {
		data.NextURL = cursorURL(r, "after", listing.After)
	}
	if listing.Before != "" {
		data.PrevURL = cursorURL(r, "before", listing.Before)
	}
}

func cursorURL(r *http.Request, dir, cursor string) string {
	q := r.URL.Query()
	q.Del("after")
	q.Del("before")
	q.Set(dir, cursor)
	u := *r.URL
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

func (h *Handlers) pageData(r *http.Request, sess *session.Session, viewer reddit.Viewer) *PageData {
	data := &PageData{
		Pinned: h.cfg.File.Pinned,
		Stats:  h.client.RateStatus(r.Context(), viewer),
	}
	if sess != nil {
		acct := sess.Account
		data.User = &acct
	}
	return data
}

// handleAPIError maps Reddit API failures to user-facing pages. A rejected
// user token destroys the session and sends the user back to / to log in
// again; x/oauth2 refreshes transparently, so a 401 here means the grant
// is gone.
func (h *Handlers) handleAPIError(w http.ResponseWriter, r *http.Request, sessID string, err error) {
	if errors.Is(err, reddit.ErrUnauthorized) {
		if sessID != "" {
			if derr := h.sessions.Destroy(r.Context(), w, sessID); derr != nil {
				h.logger.Warn("destroying session failed", "error", derr)
			}
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		h.renderError(w, r, http.StatusUnauthorized, "you need to log in to see this")
		return
	}

	var se reddit.StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusNotFound:
			h.renderError(w, r, http.StatusNotFound, "that subreddit or post does not exist")
		case http.StatusForbidden:
			h.renderError(w, r, http.StatusForbidden, "that community is private or quarantined")
		case http.StatusTooManyRequests:
			h.renderError(w, r, http.StatusTooManyRequests, "reddit is rate limiting us, try again in a minute")
		default:
			h.logger.Error("reddit api error", "status", se.Code, "path", r.URL.Path)
			h.renderError(w, r, http.StatusBadGateway, "reddit returned an error, try again later")
		}
		return
	}

	h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	h.renderError(w, r, http.StatusInternalServerError, "something went wrong")
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	viewer, sess, _ := h.sessions.Viewer(r.Context(), r)
	data := h.pageData(r, sess, viewer)
	data.Title = http.StatusText(status)
	data.Status = status
	data.Message = msg
	h.render(w, r, status, "error.html", data)
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data *PageData) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.logger.Error("rendering page failed", "page", page, "path", r.URL.Path, "error", err)
	}
}
