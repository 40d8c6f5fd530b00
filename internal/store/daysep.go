package store

import (
	"time"

	"chat-client/internal/models"
)

// IsDifferentDay reports whether current falls on a different calendar
// date than previous in loc. A zero previous always starts a new day.
func IsDifferentDay(current, previous time.Time, loc *time.Location) bool {
	if previous.IsZero() {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	y1, m1, d1 := current.In(loc).Date()
	y2, m2, d2 := previous.In(loc).Date()
	return y1 != y2 || m1 != m2 || d1 != d2
}

// Separators marks, for each message, whether a day separator precedes it.
func Separators(messages []models.Message, loc *time.Location) []bool {
	out := make([]bool, len(messages))
	var previous time.Time
	for i, msg := range messages {
		out[i] = IsDifferentDay(msg.Timestamp, previous, loc)
		previous = msg.Timestamp
	}
	return out
}
