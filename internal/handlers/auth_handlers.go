package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"chat-client/internal/auth"
	"chat-client/internal/models"
)

// handleAuthRejection maps connect_error "Unauthorized" and the explicit
// unauthorized event to auth.ErrInvalidCredential. Other connect errors are
// left to the transport's reconnection.
func (d *Dispatcher) handleAuthRejection(event models.EventType, data json.RawMessage) error {
	reason := decodeReason(data)
	if event == models.EventUnauthorized || strings.EqualFold(strings.TrimSpace(reason), "unauthorized") {
		d.log.Warn("Relay rejected credential: %s", reason)
		return fmt.Errorf("%w: %s", auth.ErrInvalidCredential, reason)
	}
	d.log.Warn("Connect error: %s", reason)
	return nil
}

func decodeReason(data json.RawMessage) string {
	var evt models.ConnectErrorEvent
	if err := json.Unmarshal(data, &evt); err == nil && evt.Message != "" {
		return evt.Message
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return ""
}
