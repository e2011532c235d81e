package web

import (
	"errors"
	"net/http"

	"github.com/Jackevansevo/jeddit/internal/session"
)

// Login starts the authorization-code flow: it mints a session id, sets it
// as the cookie and sends the user to Reddit with the same id as the OAuth
// state parameter.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Mint()
	h.sessions.SetCookie(w, id)
	http.Redirect(w, r, h.sessions.AuthURL(id), http.StatusFound)
}

// Auth is the OAuth callback registered as REDIRECT_URI.
func (h *Handlers) Auth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// The provider reports denial (and other failures) via the error
	// query parameter instead of a code.
	if errParam := q.Get("error"); errParam != "" {
		if errParam == "access_denied" {
			h.renderError(w, r, http.StatusForbidden, "login canceled")
			return
		}
		h.logger.Warn("oauth callback error", "error", errParam)
		h.renderError(w, r, http.StatusBadGateway, "login failed, try again")
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		h.renderError(w, r, http.StatusBadRequest, "malformed callback")
		return
	}

	sess, err := h.sessions.Exchange(r.Context(), h.client, r, code, state)
	if err != nil {
		if errors.Is(err, session.ErrStateMismatch) {
			h.renderError(w, r, http.StatusUnauthorized, "login state mismatch, try again")
			return
		}
		h.logger.Error("completing login failed", "error", err)
		h.renderError(w, r, http.StatusBadGateway, "login failed, try again")
		return
	}

	h.logger.Info("user logged in", "user", sess.Account.Name)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout destroys the session and returns to the front page.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.CookieID(r)
	if err := h.sessions.Destroy(r.Context(), w, id); err != nil {
		h.logger.Warn("destroying session failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
