package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Meeting struct {
	ID            string
	ZoomMeetingID int64
	Title         string
	JoinURL       string
	StartURL      string
	StartTime     time.Time
	Duration      int // minutes
	OwnerID       string
	Participants  []Participant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Upcoming reports whether the meeting starts after now.
func (m *Meeting) Upcoming(now time.Time) bool {
	return m.StartTime.After(now)
}

type Participant struct {
	ID        string
	MeetingID string
	Name      string
	Attended  bool
	CreatedAt time.Time
}

// MeetingCounts backs the home page counters.
type MeetingCounts struct {
	Total    int
	Upcoming int
	Past     int
}
