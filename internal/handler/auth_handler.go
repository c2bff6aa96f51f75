package handler

import (
	"net/http"

	"zoom-meetings-api/internal/apperr"
	"zoom-meetings-api/internal/auth"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/session"
)

const loginAction = "Zoom login"

// Login sends the browser to Zoom's consent page.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.MakeState(h.appSecret)
	if err != nil {
		h.fail(w, r, loginAction, err, "/")
		return
	}
	http.Redirect(w, r, h.zoom.AuthCodeURL(state), http.StatusFound)
}

// Callback finishes the OAuth code flow. Nothing is cached and no user is
// created unless every step succeeds.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	code := q.Get("code")
	if code == "" {
		h.flash(w, r, session.KindError, apperr.FailurePrefix+"no authorization code received", "/")
		return
	}
	if err := auth.ParseState(q.Get("state"), h.appSecret); err != nil {
		h.fail(w, r, loginAction, apperr.Auth("verify state", err), "/")
		return
	}

	tok, err := h.zoom.Exchange(ctx, code)
	if err != nil {
		h.fail(w, r, loginAction, err, "/")
		return
	}
	info, err := h.zoom.UserInfo(ctx, tok)
	if err != nil {
		h.fail(w, r, loginAction, apperr.Auth("user info", err), "/")
		return
	}

	u, created, err := h.users.GetOrCreateUser(ctx, info.Email)
	if err != nil {
		h.fail(w, r, loginAction, err, "/")
		return
	}
	if err := h.tokens.Set(ctx, u.ID, tok); err != nil {
		h.fail(w, r, loginAction, err, "/")
		return
	}
	if err := h.sessions.Login(w, r, u.ID); err != nil {
		h.fail(w, r, loginAction, err, "/")
		return
	}

	h.logger.Info("zoom authorized",
		logging.UserID(u.ID), logging.UserHash(info.Email), "new_user", created)
	h.flash(w, r, session.KindSuccess, "Zoom authorization successful. You can now create meetings.", "/")
}

// Status answers whether the current session holds a Zoom token.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"autorizado": h.authorized(r)})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if uid, ok := h.sessions.UserID(r); ok {
		if err := h.tokens.Delete(r.Context(), uid); err != nil {
			h.logger.Error("drop token", logging.UserID(uid), logging.Err(err))
		}
	}
	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.Error("clear session", logging.Err(err))
	}
	h.flash(w, r, session.KindSuccess, "Signed out.", "/")
}
