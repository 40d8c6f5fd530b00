package main

import (
	"fmt"
	"io"
	"time"

	"chat-client/internal/store"
)

func renderRooms(out io.Writer, snap store.Snapshot) {
	if len(snap.Rooms) == 0 {
		fmt.Fprintln(out, "(no rooms)")
		return
	}
	for _, room := range snap.Rooms {
		marker := " "
		switch {
		case room.ID == snap.ActiveRoomID:
			marker = ">"
		case snap.Unread[room.ID]:
			marker = "*"
		}

		bg := room.BackgroundSpec()
		look := bg.Color
		if bg.ImageURL != "" {
			look = "image " + bg.ImageURL
		}
		fmt.Fprintf(out, "%s %s  %s  [%s]\n", marker, room.ID, room.Name, look)
	}
}

func renderUsers(out io.Writer, snap store.Snapshot) {
	for _, u := range snap.Users {
		fmt.Fprintf(out, "  %s  %s <%s>\n", u.ID, u.Name, u.Email)
	}
	switch {
	case snap.FoundUser != nil:
		fmt.Fprintf(out, "found: %s %s\n", snap.FoundUser.ID, snap.FoundUser.Name)
	case snap.NotFound != "":
		fmt.Fprintf(out, "no user with email %s\n", snap.NotFound)
	}
}

// renderTranscript prints the active room's messages, with a date line
// wherever separators marks a new day.
func renderTranscript(out io.Writer, snap store.Snapshot, separators []bool, loc *time.Location) {
	if snap.ActiveRoomID == "" {
		fmt.Fprintln(out, "(no active room)")
		return
	}
	for i, m := range snap.Messages {
		ts := m.Timestamp.In(loc)
		if i < len(separators) && separators[i] {
			fmt.Fprintf(out, "--- %s ---\n", ts.Format("Monday, 2 January 2006"))
		}

		sender := m.SenderName
		if sender == "" {
			sender = m.SenderID
		}
		if m.SenderID == snap.Me.UserID {
			sender = "you"
		}
		body := m.Content
		if m.IsImage() {
			body = "[image] " + m.Content
		}
		if m.Edited {
			body += " (edited)"
		}
		fmt.Fprintf(out, "%s %s: %s\n", ts.Format("15:04"), sender, body)
	}
}
