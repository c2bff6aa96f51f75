package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"zoom-meetings-api/internal/model"
)

const userCols = `id, email, password_hash, is_superuser, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetOrCreateUser returns the user whose email (the username) matches,
// creating it on first sight. created reports whether a row was inserted.
func (s *Store) GetOrCreateUser(ctx context.Context, email string) (u *model.User, created bool, err error) {
	email = normalizeEmail(email)
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email) VALUES ($1,$2) ON CONFLICT (email) DO NOTHING`,
		uuid.New().String(), email,
	)
	if err != nil {
		return nil, false, err
	}
	u, err = s.UserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	return u, tag.RowsAffected() == 1, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, normalizeEmail(email)))
}

// Superuser returns the oldest superuser, the fallback owner for meetings
// whose host email is unknown.
func (s *Store) Superuser(ctx context.Context) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE is_superuser ORDER BY created_at, id LIMIT 1`))
}

// SaveSuperuser promotes (or creates) the user with email and sets its
// password hash.
func (s *Store) SaveSuperuser(ctx context.Context, email, passwordHash string) (*model.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, is_superuser) VALUES ($1,$2,$3,true)
		 ON CONFLICT (email) DO UPDATE
		 SET password_hash = EXCLUDED.password_hash, is_superuser = true, updated_at = NOW()
		 RETURNING `+userCols,
		uuid.New().String(), normalizeEmail(email), passwordHash,
	))
}
