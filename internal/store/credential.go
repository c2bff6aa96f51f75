package store

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"zoom-meetings-api/internal/tokencache"
)

// Credentials is the Postgres-backed tokencache.Cache. Tokens survive
// restarts and are shared by every server process using the database.
type Credentials struct {
	s   *Store
	now func() time.Time
}

var _ tokencache.Cache = (*Credentials)(nil)

func (s *Store) Credentials() *Credentials {
	return &Credentials{s: s, now: time.Now}
}

func (c *Credentials) Get(ctx context.Context, userID string) (*oauth2.Token, error) {
	var (
		tok = &oauth2.Token{}
		exp *time.Time
	)
	err := c.s.pool.QueryRow(ctx,
		`SELECT access_token, refresh_token, token_type, expires_at
		 FROM zoom_credentials WHERE user_id = $1`, userID,
	).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &exp)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return nil, tokencache.ErrNotFound
		}
		return nil, err
	}
	if exp != nil {
		tok.Expiry = *exp
	}
	if tokencache.Expired(tok, c.now()) {
		return nil, tokencache.ErrNotFound
	}
	return tok, nil
}

func (c *Credentials) Set(ctx context.Context, userID string, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return errors.New("credentials: empty token")
	}
	var exp *time.Time
	if !tok.Expiry.IsZero() {
		exp = &tok.Expiry
	}
	_, err := c.s.pool.Exec(ctx,
		`INSERT INTO zoom_credentials (user_id, access_token, refresh_token, token_type, expires_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (user_id) DO UPDATE
		 SET access_token = EXCLUDED.access_token, refresh_token = EXCLUDED.refresh_token,
		     token_type = EXCLUDED.token_type, expires_at = EXCLUDED.expires_at, updated_at = NOW()`,
		userID, tok.AccessToken, tok.RefreshToken, tok.TokenType, exp,
	)
	return err
}

func (c *Credentials) Delete(ctx context.Context, userID string) error {
	_, err := c.s.pool.Exec(ctx, `DELETE FROM zoom_credentials WHERE user_id = $1`, userID)
	return err
}

// PurgeExpired removes rows whose expiry has passed.
func (c *Credentials) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := c.s.pool.Exec(ctx,
		`DELETE FROM zoom_credentials WHERE expires_at IS NOT NULL AND expires_at <= $1`, c.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
