package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"zoom-meetings-api/internal/apperr"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	listPageSize   = 300
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string // e.g. https://api.zoom.us/v2
}

// Client talks to the Zoom REST API on behalf of one user at a time: every
// API call takes that user's token.
type Client struct {
	oauth   *oauth2.Config
	apiURL  string
	http    *http.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(cfg Config, m *metrics.Metrics, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:  cfg.APIURL,
		http:    &http.Client{Timeout: defaultTimeout},
		metrics: m,
		logger:  logger,
	}
}

// AuthCodeURL is the Zoom-hosted page the browser is sent to.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (tok *oauth2.Token, err error) {
	defer c.observe("exchange_code", time.Now(), &err)

	tok, err = c.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		return nil, apperr.Auth("exchange code", err)
	}
	c.logger.Debug("zoom token issued",
		"access_token", logging.SanitizeToken(tok.AccessToken),
		"expires_at", tok.Expiry)
	return tok, nil
}

func (c *Client) UserInfo(ctx context.Context, tok *oauth2.Token) (*User, error) {
	var u User
	if err := c.do(ctx, tok, "user_info", http.MethodGet, "/users/me", nil, &u); err != nil {
		return nil, err
	}
	if u.Email == "" {
		return nil, apperr.Provider("user_info", 0, errors.New("account has no email"))
	}
	return &u, nil
}

func (c *Client) CreateMeeting(ctx context.Context, tok *oauth2.Token, req CreateMeetingRequest) (*Meeting, error) {
	if req.Type == 0 {
		req.Type = TypeScheduled
	}
	var m Meeting
	if err := c.do(ctx, tok, "create_meeting", http.MethodPost, "/users/me/meetings", req, &m); err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, apperr.Provider("create_meeting", 0, errors.New("response has no meeting id"))
	}
	return &m, nil
}

func (c *Client) DeleteMeeting(ctx context.Context, tok *oauth2.Token, id int64) error {
	return c.do(ctx, tok, "delete_meeting", http.MethodDelete, "/meetings/"+strconv.FormatInt(id, 10), nil, nil)
}

// ListMeetings returns every scheduled meeting of the token's user, following
// next_page_token until exhausted.
func (c *Client) ListMeetings(ctx context.Context, tok *oauth2.Token) ([]Meeting, error) {
	var out []Meeting
	next := ""
	for {
		q := url.Values{}
		q.Set("type", "scheduled")
		q.Set("page_size", strconv.Itoa(listPageSize))
		if next != "" {
			q.Set("next_page_token", next)
		}

		var page listMeetingsResponse
		if err := c.do(ctx, tok, "list_meetings", http.MethodGet, "/users/me/meetings?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Meetings...)
		if page.NextPageToken == "" {
			return out, nil
		}
		next = page.NextPageToken
	}
}

func (c *Client) do(ctx context.Context, tok *oauth2.Token, op, method, path string, in, out any) (err error) {
	defer c.observe(op, time.Now(), &err)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return apperr.Provider(op, 0, fmt.Errorf("marshal request: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
	if err != nil {
		return apperr.Provider(op, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Authorization is added by the oauth2 transport
	hc := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), oauth2.StaticTokenSource(tok))
	resp, err := hc.Do(req)
	if err != nil {
		return apperr.Provider(op, 0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Provider(op, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Provider(op, resp.StatusCode, decodeAPIError(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.Provider(op, resp.StatusCode, fmt.Errorf("parse response: %w", err))
	}
	return nil
}

func (c *Client) observe(op string, start time.Time, err *error) {
	d := time.Since(start)
	c.metrics.ObserveProvider(op, *err, d)
	if *err != nil {
		c.logger.Warn("zoom request failed", logging.Operation(op), "duration", d, logging.Err(*err))
	}
}

func decodeAPIError(body []byte) error {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return fmt.Errorf("zoom code %d: %s", e.Code, e.Message)
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("unexpected response: %q", body)
}
