package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"zoom-meetings-api/internal/apperr"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = mustParsePages()

func mustParsePages() map[string]*template.Template {
	funcs := template.FuncMap{
		"datetime": func(t time.Time, loc *time.Location) string {
			return t.In(loc).Format("2006-01-02 15:04 MST")
		},
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
	out := make(map[string]*template.Template, len(files))
	for _, f := range files {
		name := path.Base(f)
		if name == "layout.html" {
			continue
		}
		out[name] = template.Must(template.New(name).Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", f))
	}
	return out
}

// view is what every page template receives.
type view struct {
	Title      string
	Flashes    []session.Flash
	Authorized bool
	Loc        *time.Location
	Now        time.Time
	Data       any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	t, ok := pages[page]
	if !ok {
		h.logger.Error("unknown template", "page", page)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	v.Flashes = append(h.sessions.Flashes(w, r), v.Flashes...)
	v.Loc = h.loc
	v.Now = h.now()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		h.logger.Error("render failed", "page", page, logging.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError shows err on the error page with its mapped status.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(action+" failed", logging.Err(err))
	}
	h.render(w, r, status, "error.html", view{
		Title:      http.StatusText(status),
		Authorized: h.authorized(r),
		Flashes:    []session.Flash{{Kind: session.KindError, Message: apperr.Message(action, err)}},
	})
}

// flash queues msg for the next page and redirects to target.
func (h *Handler) flash(w http.ResponseWriter, r *http.Request, kind, msg, target string) {
	if err := h.sessions.AddFlash(w, r, kind, msg); err != nil {
		h.logger.Error("save flash", logging.Err(err))
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// fail logs err, flashes its user-facing message and redirects to target.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, action string, err error, target string) {
	h.logger.Warn(action+" failed", logging.Err(err))
	h.flash(w, r, session.KindError, apperr.Message(action, err), target)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
