// Package logging builds the process logger and holds the attribute helpers
// used across handlers and the Zoom client. Emails are hashed and tokens are
// never logged directly.
package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	KeyOperation = "operation"
	KeyUserID    = "user_id"
	KeyUserHash  = "user_hash"
	KeyMeeting   = "zoom_meeting_id"
	KeyEvent     = "event"
	KeyStatus    = "status"
	KeyError     = "error"
)

// New returns a slog.Logger writing to w. format is "json" or "text";
// level is one of debug, info, warn, error.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want json or text", format)
	}
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func UserID(id string) slog.Attr { return slog.String(KeyUserID, id) }

func Meeting(id int64) slog.Attr { return slog.Int64(KeyMeeting, id) }

func Event(name string) slog.Attr { return slog.String(KeyEvent, name) }

// Err returns an error attribute. A nil err yields an empty group, which slog
// drops from the output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an email so log lines can be correlated without
// exposing the address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken reports only a token's length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
