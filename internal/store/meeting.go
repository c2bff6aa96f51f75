package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"zoom-meetings-api/internal/model"
)

const meetingCols = `id, zoom_meeting_id, title, join_url, start_url, start_time,
	duration, owner_id, created_at, updated_at`

func scanMeeting(row interface{ Scan(...any) error }, m *model.Meeting) error {
	return row.Scan(&m.ID, &m.ZoomMeetingID, &m.Title, &m.JoinURL, &m.StartURL, &m.StartTime,
		&m.Duration, &m.OwnerID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO meetings (id, zoom_meeting_id, title, join_url, start_url, start_time, duration, owner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING created_at, updated_at`,
		m.ID, m.ZoomMeetingID, m.Title, m.JoinURL, m.StartURL, m.StartTime, m.Duration, m.OwnerID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

// UpsertMeeting inserts or overwrites the row keyed by the Zoom meeting id,
// owner included. m.ID is set to the id of the stored row.
func (s *Store) UpsertMeeting(ctx context.Context, m *model.Meeting) error {
	return s.pool.QueryRow(ctx,
		`INSERT INTO meetings (id, zoom_meeting_id, title, join_url, start_url, start_time, duration, owner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (zoom_meeting_id) DO UPDATE
		 SET title = EXCLUDED.title, join_url = EXCLUDED.join_url, start_url = EXCLUDED.start_url,
		     start_time = EXCLUDED.start_time, duration = EXCLUDED.duration,
		     owner_id = EXCLUDED.owner_id, updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		uuid.New().String(), m.ZoomMeetingID, m.Title, m.JoinURL, m.StartURL, m.StartTime, m.Duration, m.OwnerID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *Store) MeetingsByOwner(ctx context.Context, ownerID string) ([]model.Meeting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE owner_id = $1 ORDER BY start_time DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Meeting
	for rows.Next() {
		var m model.Meeting
		if err := scanMeeting(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MeetingForOwner loads a meeting with its participants. A meeting owned by
// someone else is reported as ErrNotFound.
func (s *Store) MeetingForOwner(ctx context.Context, id, ownerID string) (*model.Meeting, error) {
	m := &model.Meeting{}
	err := scanMeeting(s.pool.QueryRow(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE id = $1 AND owner_id = $2`, id, ownerID), m)
	if err != nil {
		return nil, notFound(err)
	}
	if m.Participants, err = s.Participants(ctx, m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) MeetingByZoomID(ctx context.Context, zoomID int64) (*model.Meeting, error) {
	m := &model.Meeting{}
	err := scanMeeting(s.pool.QueryRow(ctx,
		`SELECT `+meetingCols+` FROM meetings WHERE zoom_meeting_id = $1`, zoomID), m)
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

// DeleteMeeting removes an owned meeting; participants go with it.
func (s *Store) DeleteMeeting(ctx context.Context, id, ownerID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CountMeetings(ctx context.Context, now time.Time) (model.MeetingCounts, error) {
	var c model.MeetingCounts
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE start_time > $1),
		        COUNT(*) FILTER (WHERE start_time < $1)
		 FROM meetings`, now,
	).Scan(&c.Total, &c.Upcoming, &c.Past)
	return c, err
}
