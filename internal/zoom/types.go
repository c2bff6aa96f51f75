package zoom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const (
	// StartTimeLayout is the local wall-clock format sent on create; Zoom
	// reads it in the request's timezone.
	StartTimeLayout = "2006-01-02T15:04:05"
	// ListTimeLayout is the UTC format Zoom returns when listing meetings.
	ListTimeLayout = "2006-01-02T15:04:05Z"

	TypeScheduled = 2
)

// Webhook event names handled by the server.
const (
	EventURLValidation     = "endpoint.url_validation"
	EventParticipantJoined = "meeting.participant_joined"
)

// MeetingID is Zoom's numeric meeting id. Some payloads carry it as a
// string, so both forms decode.
type MeetingID int64

func (id *MeetingID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*id = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("zoom: meeting id %s: %w", b, err)
	}
	*id = MeetingID(n)
	return nil
}

type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Timezone  string `json:"timezone"`
}

type CreateMeetingRequest struct {
	Topic     string `json:"topic"`
	Type      int    `json:"type"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Timezone  string `json:"timezone,omitempty"`
}

type Meeting struct {
	ID        MeetingID `json:"id"`
	UUID      string    `json:"uuid,omitempty"`
	Topic     string    `json:"topic"`
	Type      int       `json:"type"`
	StartTime string    `json:"start_time"`
	Duration  int       `json:"duration"`
	Timezone  string    `json:"timezone,omitempty"`
	JoinURL   string    `json:"join_url"`
	StartURL  string    `json:"start_url,omitempty"`
	HostEmail string    `json:"host_email,omitempty"`
}

// Start parses a listed meeting's start_time.
func (m *Meeting) Start() (time.Time, error) {
	return time.Parse(ListTimeLayout, m.StartTime)
}

type listMeetingsResponse struct {
	PageSize      int       `json:"page_size"`
	TotalRecords  int       `json:"total_records"`
	NextPageToken string    `json:"next_page_token"`
	Meetings      []Meeting `json:"meetings"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type WebhookEvent struct {
	Event   string         `json:"event"`
	EventTS int64          `json:"event_ts"`
	Payload WebhookPayload `json:"payload"`
}

type WebhookPayload struct {
	AccountID  string        `json:"account_id"`
	PlainToken string        `json:"plainToken"`
	Object     WebhookObject `json:"object"`
}

type WebhookObject struct {
	ID          MeetingID          `json:"id"`
	UUID        string             `json:"uuid"`
	Topic       string             `json:"topic"`
	Participant WebhookParticipant `json:"participant"`
}

type WebhookParticipant struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	JoinTime string `json:"join_time"`
}
