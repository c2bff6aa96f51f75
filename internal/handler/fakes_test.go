package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"zoom-meetings-api/internal/apperr"
	"zoom-meetings-api/internal/model"
	"zoom-meetings-api/internal/store"
	"zoom-meetings-api/internal/zoom"
)

// fakeStore is an in-memory UserStore and MeetingStore. fail forces the
// named method to return the given error.
type fakeStore struct {
	mu           sync.Mutex
	users        []*model.User
	meetings     []*model.Meeting
	participants []*model.Participant
	fail         map[string]error
	seq          int
}

func newFakeStore() *fakeStore {
	return &fakeStore{fail: map[string]error{}}
}

func (f *fakeStore) id(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) failing(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[method]
}

func (f *fakeStore) setFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeStore) GetOrCreateUser(_ context.Context, email string) (*model.User, bool, error) {
	if err := f.failing("GetOrCreateUser"); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, false, nil
		}
	}
	u := &model.User{ID: f.id("user"), Email: email}
	f.users = append(f.users, u)
	return u, true, nil
}

func (f *fakeStore) Superuser(context.Context) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.IsSuperuser {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) addSuperuser(email string) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: f.id("admin"), Email: email, IsSuperuser: true}
	f.users = append(f.users, u)
	return u
}

func (f *fakeStore) CreateMeeting(_ context.Context, m *model.Meeting) error {
	if err := f.failing("CreateMeeting"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.meetings {
		if have.ZoomMeetingID == m.ZoomMeetingID {
			return errors.New("duplicate zoom_meeting_id")
		}
	}
	if m.ID == "" {
		m.ID = f.id("meeting")
	}
	cp := *m
	f.meetings = append(f.meetings, &cp)
	return nil
}

func (f *fakeStore) UpsertMeeting(_ context.Context, m *model.Meeting) error {
	if err := f.failing("UpsertMeeting"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, have := range f.meetings {
		if have.ZoomMeetingID == m.ZoomMeetingID {
			m.ID = have.ID
			*have = *m
			return nil
		}
	}
	m.ID = f.id("meeting")
	cp := *m
	f.meetings = append(f.meetings, &cp)
	return nil
}

func (f *fakeStore) MeetingsByOwner(_ context.Context, ownerID string) ([]model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Meeting
	for _, m := range f.meetings {
		if m.OwnerID == ownerID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeStore) MeetingForOwner(_ context.Context, id, ownerID string) (*model.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.meetings {
		if m.ID == id && m.OwnerID == ownerID {
			cp := *m
			for _, p := range f.participants {
				if p.MeetingID == m.ID {
					cp.Participants = append(cp.Participants, *p)
				}
			}
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) MeetingByZoomID(_ context.Context, zoomID int64) (*model.Meeting, error) {
	if err := f.failing("MeetingByZoomID"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.meetings {
		if m.ZoomMeetingID == zoomID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteMeeting(_ context.Context, id, ownerID string) error {
	if err := f.failing("DeleteMeeting"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.meetings, func(m *model.Meeting) bool { return m.ID == id && m.OwnerID == ownerID })
	if i < 0 {
		return store.ErrNotFound
	}
	f.meetings = slices.Delete(f.meetings, i, i+1)
	f.participants = slices.DeleteFunc(f.participants, func(p *model.Participant) bool { return p.MeetingID == id })
	return nil
}

func (f *fakeStore) CountMeetings(_ context.Context, now time.Time) (model.MeetingCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c model.MeetingCounts
	for _, m := range f.meetings {
		c.Total++
		switch {
		case m.StartTime.After(now):
			c.Upcoming++
		case m.StartTime.Before(now):
			c.Past++
		}
	}
	return c, nil
}

func (f *fakeStore) AddParticipant(_ context.Context, p *model.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = f.id("participant")
	}
	cp := *p
	f.participants = append(f.participants, &cp)
	return nil
}

func (f *fakeStore) MarkAttended(_ context.Context, meetingID, name string) (bool, error) {
	if err := f.failing("MarkAttended"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.participants {
		if p.MeetingID == meetingID && strings.Contains(strings.ToLower(p.Name), strings.ToLower(name)) {
			p.Attended = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) meeting(zoomID int64) *model.Meeting {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.meetings {
		if m.ZoomMeetingID == zoomID {
			cp := *m
			return &cp
		}
	}
	return nil
}

func (f *fakeStore) meetingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.meetings)
}

func (f *fakeStore) attendance(meetingID string) map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for _, p := range f.participants {
		if p.MeetingID == meetingID {
			out[p.Name] = p.Attended
		}
	}
	return out
}

// fakeZoom stands in for the Zoom client.
type fakeZoom struct {
	mu sync.Mutex

	email     string
	hostEmail string
	nextID    int64
	list      []zoom.Meeting

	exchangeErr error
	userErr     error
	createErr   error
	deleteErr   error
	listErr     error

	exchanges int
	created   []zoom.CreateMeetingRequest
	deleted   []int64
	tokens    []string
}

func newFakeZoom() *fakeZoom {
	return &fakeZoom{email: "host@example.com", hostEmail: "host@example.com", nextID: 85746065432}
}

func (z *fakeZoom) AuthCodeURL(state string) string {
	return "https://zoom.test/oauth/authorize?state=" + url.QueryEscape(state)
}

func (z *fakeZoom) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.exchanges++
	if z.exchangeErr != nil {
		return nil, z.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-" + code, TokenType: "bearer", Expiry: time.Now().Add(time.Hour)}, nil
}

func (z *fakeZoom) UserInfo(context.Context, *oauth2.Token) (*zoom.User, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.userErr != nil {
		return nil, z.userErr
	}
	return &zoom.User{ID: "zu1", Email: z.email}, nil
}

func (z *fakeZoom) CreateMeeting(_ context.Context, tok *oauth2.Token, req zoom.CreateMeetingRequest) (*zoom.Meeting, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.tokens = append(z.tokens, tok.AccessToken)
	z.created = append(z.created, req)
	if z.createErr != nil {
		return nil, z.createErr
	}
	id := z.nextID
	z.nextID++
	return &zoom.Meeting{
		ID:        zoom.MeetingID(id),
		Topic:     req.Topic,
		StartTime: req.StartTime,
		Duration:  req.Duration,
		JoinURL:   fmt.Sprintf("https://zoom.us/j/%d", id),
		StartURL:  fmt.Sprintf("https://zoom.us/s/%d", id),
		HostEmail: z.hostEmail,
	}, nil
}

func (z *fakeZoom) DeleteMeeting(_ context.Context, _ *oauth2.Token, id int64) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.deleted = append(z.deleted, id)
	return z.deleteErr
}

func (z *fakeZoom) ListMeetings(context.Context, *oauth2.Token) ([]zoom.Meeting, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.listErr != nil {
		return nil, z.listErr
	}
	return slices.Clone(z.list), nil
}

var errZoomDown = apperr.Provider("create_meeting", 500, errors.New("internal error"))
