package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"zoom-meetings-api/internal/model"
)

func (s *Store) AddParticipant(ctx context.Context, p *model.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO participants (id, meeting_id, name, attended) VALUES ($1,$2,$3,$4)
		 RETURNING created_at`,
		p.ID, p.MeetingID, p.Name, p.Attended,
	).Scan(&p.CreatedAt)
}

func (s *Store) Participants(ctx context.Context, meetingID string) ([]model.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, meeting_id, name, attended, created_at
		 FROM participants WHERE meeting_id = $1 ORDER BY created_at, id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.Name, &p.Attended, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkAttended flags the first participant (oldest first) of the meeting
// whose name contains name, ignoring case. It never clears the flag.
// matched is false when no participant matched.
func (s *Store) MarkAttended(ctx context.Context, meetingID, name string) (matched bool, err error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE participants SET attended = true
		 WHERE id = (
		   SELECT id FROM participants
		   WHERE meeting_id = $1 AND name ILIKE $2 ESCAPE '\'
		   ORDER BY created_at, id
		   LIMIT 1
		 )`,
		meetingID, "%"+escapeLike(name)+"%",
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
