package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"zoom-meetings-api/internal/apperr"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/middleware"
	"zoom-meetings-api/internal/model"
	"zoom-meetings-api/internal/session"
	"zoom-meetings-api/internal/store"
	"zoom-meetings-api/internal/zoom"
)

// formLayout is what the date and time inputs join into.
const formLayout = "2006-01-02T15:04"

var errNoOwner = errors.New("no superuser to own the meeting")

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	counts, err := h.meetings.CountMeetings(r.Context(), h.now())
	if err != nil {
		h.renderError(w, r, "loading the dashboard", err)
		return
	}
	h.render(w, r, http.StatusOK, "home.html", view{
		Title:      "Home",
		Authorized: h.authorized(r),
		Data:       counts,
	})
}

type meetingForm struct {
	Topic     string
	StartDate string
	StartTime string
	Duration  string
}

func (h *Handler) NewMeetingForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "meeting_new.html", view{
		Title:      "New meeting",
		Authorized: true,
		Data:       meetingForm{Duration: "30"},
	})
}

// parse validates the form and returns the start instant in loc.
func (f meetingForm) parse(loc *time.Location) (start time.Time, duration int, err error) {
	if strings.TrimSpace(f.Topic) == "" {
		return time.Time{}, 0, apperr.Validation("topic", errors.New("empty"))
	}
	duration, err = strconv.Atoi(strings.TrimSpace(f.Duration))
	if err != nil {
		return time.Time{}, 0, apperr.Validation("duration", err)
	}
	if duration <= 0 {
		return time.Time{}, 0, apperr.Validation("duration", fmt.Errorf("%d is not positive", duration))
	}
	start, err = time.ParseInLocation(formLayout, f.StartDate+"T"+f.StartTime, loc)
	if err != nil {
		return time.Time{}, 0, apperr.Validation("start date/time", err)
	}
	return start, duration, nil
}

// CreateMeeting creates the meeting on Zoom and only then records it. A
// failed insert leaves the remote meeting in place.
func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := meetingForm{
		Topic:     strings.TrimSpace(r.PostFormValue("topic")),
		StartDate: r.PostFormValue("start_date"),
		StartTime: r.PostFormValue("start_time"),
		Duration:  r.PostFormValue("duration"),
	}

	m, err := h.createMeeting(ctx, form)
	if err != nil {
		h.logger.Warn("create meeting failed", logging.UserID(middleware.UserID(ctx)), logging.Err(err))
		h.render(w, r, http.StatusOK, "meeting_new.html", view{
			Title:      "New meeting",
			Authorized: true,
			Flashes:    []session.Flash{{Kind: session.KindError, Message: apperr.Message("creating the meeting", err)}},
			Data:       form,
		})
		return
	}

	h.logger.Info("meeting created", logging.Meeting(m.ZoomMeetingID), logging.UserID(m.OwnerID))
	h.flash(w, r, session.KindSuccess, fmt.Sprintf("Meeting %q created.", m.Title), "/meetings")
}

func (h *Handler) createMeeting(ctx context.Context, form meetingForm) (*model.Meeting, error) {
	start, duration, err := form.parse(h.loc)
	if err != nil {
		return nil, err
	}

	req := zoom.CreateMeetingRequest{
		Topic:     form.Topic,
		Type:      zoom.TypeScheduled,
		StartTime: start.Format(zoom.StartTimeLayout),
		Duration:  duration,
	}
	if tz := h.loc.String(); tz != "Local" {
		req.Timezone = tz
	}
	zm, err := h.zoom.CreateMeeting(ctx, middleware.Token(ctx), req)
	if err != nil {
		return nil, err
	}

	owner, err := h.meetingOwner(ctx, zm.HostEmail)
	if err != nil {
		return nil, fmt.Errorf("resolve owner of zoom meeting %d: %w", zm.ID, err)
	}

	m := &model.Meeting{
		ZoomMeetingID: int64(zm.ID),
		Title:         form.Topic,
		JoinURL:       zm.JoinURL,
		StartURL:      zm.StartURL,
		StartTime:     start,
		Duration:      duration,
		OwnerID:       owner.ID,
	}
	if err := h.meetings.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("record zoom meeting %d: %w", zm.ID, err)
	}
	return m, nil
}

// meetingOwner maps the host email to a local user, falling back to the
// first superuser when Zoom did not report one.
func (h *Handler) meetingOwner(ctx context.Context, hostEmail string) (*model.User, error) {
	if hostEmail != "" {
		u, _, err := h.users.GetOrCreateUser(ctx, hostEmail)
		return u, err
	}
	u, err := h.users.Superuser(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errNoOwner
	}
	return u, err
}

func (h *Handler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	list, err := h.meetings.MeetingsByOwner(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.renderError(w, r, "listing meetings", err)
		return
	}
	h.render(w, r, http.StatusOK, "meeting_list.html", view{
		Title:      "My meetings",
		Authorized: true,
		Data:       list,
	})
}

// ownedMeeting loads the path's meeting for the session user, mapping a miss
// to a not-found error.
func (h *Handler) ownedMeeting(r *http.Request) (*model.Meeting, error) {
	id := r.PathValue("id")
	m, err := h.meetings.MeetingForOwner(r.Context(), id, middleware.UserID(r.Context()))
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("meeting", id)
	}
	return m, err
}

func (h *Handler) MeetingDetail(w http.ResponseWriter, r *http.Request) {
	m, err := h.ownedMeeting(r)
	if err != nil {
		h.renderError(w, r, "loading the meeting", err)
		return
	}
	h.render(w, r, http.StatusOK, "meeting_detail.html", view{
		Title:      m.Title,
		Authorized: true,
		Data:       m,
	})
}

// DeleteMeeting removes the meeting from Zoom first. The local row is kept
// when that fails.
func (h *Handler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	m, err := h.ownedMeeting(r)
	if err != nil {
		h.renderError(w, r, "deleting the meeting", err)
		return
	}

	if err := h.zoom.DeleteMeeting(ctx, middleware.Token(ctx), m.ZoomMeetingID); err != nil {
		h.fail(w, r, "deleting the meeting", err, "/meetings")
		return
	}
	if err := h.meetings.DeleteMeeting(ctx, m.ID, m.OwnerID); err != nil {
		h.fail(w, r, "deleting the meeting", err, "/meetings")
		return
	}

	h.logger.Info("meeting deleted", logging.Meeting(m.ZoomMeetingID), logging.UserID(m.OwnerID))
	h.flash(w, r, session.KindSuccess, fmt.Sprintf("Meeting %q deleted.", m.Title), "/meetings")
}

// SyncMeetings mirrors every scheduled Zoom meeting into the store, owned by
// the session user. Start times are all parsed before anything is written.
func (h *Handler) SyncMeetings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := middleware.UserID(ctx)

	remote, err := h.zoom.ListMeetings(ctx, middleware.Token(ctx))
	if err != nil {
		h.fail(w, r, "syncing meetings", err, "/meetings")
		return
	}

	rows := make([]model.Meeting, 0, len(remote))
	for _, zm := range remote {
		start, err := zm.Start()
		if err != nil {
			h.fail(w, r, "syncing meetings", fmt.Errorf("zoom meeting %d start_time: %w", zm.ID, err), "/meetings")
			return
		}
		rows = append(rows, model.Meeting{
			ZoomMeetingID: int64(zm.ID),
			Title:         zm.Topic,
			JoinURL:       zm.JoinURL,
			StartURL:      zm.StartURL,
			StartTime:     start,
			Duration:      zm.Duration,
			OwnerID:       uid,
		})
	}
	for i := range rows {
		if err := h.meetings.UpsertMeeting(ctx, &rows[i]); err != nil {
			h.fail(w, r, "syncing meetings", err, "/meetings")
			return
		}
	}

	h.logger.Info("meetings synced", logging.UserID(uid), "count", len(rows))
	h.flash(w, r, session.KindSuccess, fmt.Sprintf("Synced %d meetings from Zoom.", len(rows)), "/meetings")
}

func (h *Handler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	m, err := h.ownedMeeting(r)
	if err != nil {
		h.renderError(w, r, "adding the participant", err)
		return
	}
	back := "/meetings/" + m.ID

	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		h.fail(w, r, "adding the participant", apperr.Validation("name", errors.New("empty")), back)
		return
	}
	p := &model.Participant{MeetingID: m.ID, Name: name}
	if err := h.meetings.AddParticipant(r.Context(), p); err != nil {
		h.fail(w, r, "adding the participant", err, back)
		return
	}
	h.flash(w, r, session.KindSuccess, fmt.Sprintf("Added %s.", name), back)
}
