package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"zoom-meetings-api/internal/auth"
	"zoom-meetings-api/internal/logging"
	"zoom-meetings-api/internal/store"
	"zoom-meetings-api/internal/zoom"
)

const maxWebhookBody = 1 << 20

// Webhook receives Zoom event notifications. It is not behind the session
// guard: Zoom calls it directly.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}

	var ev zoom.WebhookEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWebhookBody)).Decode(&ev); err != nil {
		h.logger.Warn("webhook payload rejected", logging.Err(err))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	h.metrics.WebhookEvent(ev.Event)

	switch ev.Event {
	case zoom.EventURLValidation:
		plain := ev.Payload.PlainToken
		encrypted := plain
		if h.webhookSecret != "" {
			encrypted = auth.EncryptPlainToken(h.webhookSecret, plain)
		} else {
			h.logger.Warn("ZOOM_WEBHOOK_SECRET not set, echoing plainToken for url validation")
		}
		writeJSON(w, http.StatusOK, map[string]string{"plainToken": plain, "encryptedToken": encrypted})
		return

	case zoom.EventParticipantJoined:
		if err := h.markAttendance(r.Context(), ev.Payload.Object); err != nil {
			h.logger.Error("mark attendance failed", logging.Event(ev.Event),
				logging.Meeting(int64(ev.Payload.Object.ID)), logging.Err(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}

	default:
		h.logger.Debug("webhook event ignored", logging.Event(ev.Event))
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// markAttendance flags the first participant whose name contains the
// joiner's name. Unknown meetings and unmatched names are not errors.
func (h *Handler) markAttendance(ctx context.Context, obj zoom.WebhookObject) error {
	name := strings.TrimSpace(obj.Participant.UserName)
	if name == "" || obj.ID == 0 {
		return nil
	}

	m, err := h.meetings.MeetingByZoomID(ctx, int64(obj.ID))
	if errors.Is(err, store.ErrNotFound) {
		h.logger.Debug("participant joined unknown meeting", logging.Meeting(int64(obj.ID)))
		return nil
	}
	if err != nil {
		return err
	}

	matched, err := h.meetings.MarkAttended(ctx, m.ID, name)
	if err != nil {
		return err
	}
	if matched {
		h.metrics.ParticipantAttended()
		h.logger.Info("participant attended", logging.Meeting(m.ZoomMeetingID))
	}
	return nil
}
