// Package handler serves the browser pages, the OAuth flow and the Zoom
// webhook.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"zoom-meetings-api/internal/metrics"
	"zoom-meetings-api/internal/middleware"
	"zoom-meetings-api/internal/model"
	"zoom-meetings-api/internal/session"
	"zoom-meetings-api/internal/tokencache"
	"zoom-meetings-api/internal/zoom"
)

type UserStore interface {
	GetOrCreateUser(ctx context.Context, email string) (*model.User, bool, error)
	Superuser(ctx context.Context) (*model.User, error)
}

type MeetingStore interface {
	CreateMeeting(ctx context.Context, m *model.Meeting) error
	UpsertMeeting(ctx context.Context, m *model.Meeting) error
	MeetingsByOwner(ctx context.Context, ownerID string) ([]model.Meeting, error)
	MeetingForOwner(ctx context.Context, id, ownerID string) (*model.Meeting, error)
	MeetingByZoomID(ctx context.Context, zoomID int64) (*model.Meeting, error)
	DeleteMeeting(ctx context.Context, id, ownerID string) error
	CountMeetings(ctx context.Context, now time.Time) (model.MeetingCounts, error)
	AddParticipant(ctx context.Context, p *model.Participant) error
	MarkAttended(ctx context.Context, meetingID, name string) (bool, error)
}

// Provider is the subset of the Zoom client the handlers call.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, tok *oauth2.Token) (*zoom.User, error)
	CreateMeeting(ctx context.Context, tok *oauth2.Token, req zoom.CreateMeetingRequest) (*zoom.Meeting, error)
	DeleteMeeting(ctx context.Context, tok *oauth2.Token, id int64) error
	ListMeetings(ctx context.Context, tok *oauth2.Token) ([]zoom.Meeting, error)
}

type Deps struct {
	Users    UserStore
	Meetings MeetingStore
	Tokens   tokencache.Cache
	Zoom     Provider
	Sessions *session.Manager

	AppSecret     string // signs OAuth state
	WebhookSecret string
	Location      *time.Location

	Metrics     *metrics.Metrics        // optional
	RateLimiter *middleware.RateLimiter // optional
	Logger      *slog.Logger
}

type Handler struct {
	users    UserStore
	meetings MeetingStore
	tokens   tokencache.Cache
	zoom     Provider
	sessions *session.Manager

	appSecret     string
	webhookSecret string
	loc           *time.Location

	metrics *metrics.Metrics
	limiter *middleware.RateLimiter
	logger  *slog.Logger
	now     func() time.Time
}

func New(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		users:         d.Users,
		meetings:      d.Meetings,
		tokens:        d.Tokens,
		zoom:          d.Zoom,
		sessions:      d.Sessions,
		appSecret:     d.AppSecret,
		webhookSecret: d.WebhookSecret,
		loc:           loc,
		metrics:       d.Metrics,
		limiter:       d.RateLimiter,
		logger:        logger,
		now:           time.Now,
	}
}

// Routes returns the full HTTP surface wrapped in request logging.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	guard := middleware.RequireZoomToken(h.sessions, h.tokens, h.logger)
	limit := func(f http.HandlerFunc) http.Handler {
		if h.limiter == nil {
			return f
		}
		return middleware.RateLimit(h.limiter)(f)
	}

	mux.Handle("GET /zoom/login", limit(h.Login))
	mux.Handle("GET /zoom/callback", limit(h.Callback))
	mux.HandleFunc("GET /zoom/status", h.Status)
	mux.HandleFunc("POST /logout", h.Logout)
	// every method lands here; non-POST gets a JSON 405. Zoom delivers
	// events in bursts from a few addresses, so this route is not limited.
	mux.HandleFunc("/zoom/webhook", h.Webhook)

	mux.HandleFunc("GET /{$}", h.Home)
	mux.Handle("GET /meetings/new", guard(http.HandlerFunc(h.NewMeetingForm)))
	mux.Handle("POST /meetings/new", guard(http.HandlerFunc(h.CreateMeeting)))
	mux.Handle("GET /meetings", guard(http.HandlerFunc(h.ListMeetings)))
	mux.Handle("POST /meetings/sync", guard(http.HandlerFunc(h.SyncMeetings)))
	mux.Handle("GET /meetings/{id}", guard(http.HandlerFunc(h.MeetingDetail)))
	mux.Handle("POST /meetings/{id}/delete", guard(http.HandlerFunc(h.DeleteMeeting)))
	mux.Handle("POST /meetings/{id}/participants", guard(http.HandlerFunc(h.AddParticipant)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	return middleware.Chain(mux, middleware.Observe(h.logger, h.metrics))
}

// authorized reports whether the request's user has a usable Zoom token.
func (h *Handler) authorized(r *http.Request) bool {
	uid, ok := h.sessions.UserID(r)
	if !ok {
		return false
	}
	_, err := h.tokens.Get(r.Context(), uid)
	return err == nil
}
