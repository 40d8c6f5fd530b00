package handlers

import (
	"encoding/json"
	"fmt"

	"chat-client/internal/models"
)

// handleChatHistory replaces the transcript of the active room. A history
// for any other room is a late answer to an earlier join and is dropped.
func (d *Dispatcher) handleChatHistory(data json.RawMessage) error {
	history, err := decodeHistory(data)
	if err != nil {
		return err
	}

	active := d.state.Rooms.ActiveRoomID()
	if active == "" {
		d.log.Debug("Dropping chat_history: no active room")
		return nil
	}

	roomID := history.RoomID
	if roomID == "" && len(history.Messages) > 0 {
		roomID = history.Messages[0].RoomID
	}
	if roomID != "" && roomID != active {
		d.log.Debug("Dropping stale chat_history for %s (active %s)", roomID, active)
		return nil
	}

	for i := range history.Messages {
		history.Messages[i] = d.withCachedSender(history.Messages[i])
	}
	d.state.Messages.ReplaceHistory(active, history.Messages)
	return nil
}

// handleReceiveMessage appends when the message belongs to the room that
// is active right now; otherwise it only flags the room as unread.
func (d *Dispatcher) handleReceiveMessage(data json.RawMessage) error {
	msg, err := decodeMessage(data)
	if err != nil {
		return err
	}
	if msg.RoomID == "" {
		return fmt.Errorf("receive_msg without room id")
	}

	if msg.RoomID == d.state.Rooms.ActiveRoomID() {
		d.state.Messages.Append(msg.RoomID, d.withCachedSender(msg))
		return nil
	}
	d.state.Rooms.MarkUnread(msg.RoomID)
	return nil
}

// withCachedSender overlays the newest name and avatar seen for the sender,
// since a message can carry the values from when it was written.
func (d *Dispatcher) withCachedSender(msg models.Message) models.Message {
	p, ok := d.state.Profiles.Get(msg.SenderID)
	if !ok {
		return msg
	}
	if p.Name != "" {
		msg.SenderName = p.Name
	}
	if p.Avatar != "" {
		msg.SenderAvatar = p.Avatar
	}
	return msg
}

func (d *Dispatcher) handleMessageUpdated(data json.RawMessage) error {
	msg, err := decodeMessage(data)
	if err != nil {
		return err
	}
	if msg.ID == "" {
		return fmt.Errorf("message_updated without id")
	}
	d.state.Messages.Patch(msg)
	return nil
}

func (d *Dispatcher) handleMessageDeleted(data json.RawMessage) error {
	var evt models.MessageDeletedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.MessageID == "" {
		var msg models.Message
		if err := json.Unmarshal(data, &msg); err == nil {
			evt.MessageID, evt.RoomID = msg.ID, msg.RoomID
		}
	}
	if evt.MessageID == "" {
		return fmt.Errorf("message_deleted without id")
	}
	if evt.RoomID != "" && evt.RoomID != d.state.Messages.RoomID() {
		return nil
	}
	d.state.Messages.Remove(evt.MessageID)
	return nil
}

// wireMessage tolerates the camelCase room id some relay paths send.
type wireMessage struct {
	models.Message
	AltRoomID string `json:"roomId,omitempty"`
}

func decodeMessage(data json.RawMessage) (models.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Message{}, err
	}
	if w.RoomID == "" {
		w.RoomID = w.AltRoomID
	}
	return w.Message, nil
}

// decodeHistory accepts either a bare message array or
// {"roomId": ..., "messages": [...]}.
func decodeHistory(data json.RawMessage) (models.ChatHistoryEvent, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		history := models.ChatHistoryEvent{Messages: make([]models.Message, 0, len(raw))}
		for _, item := range raw {
			msg, err := decodeMessage(item)
			if err != nil {
				return models.ChatHistoryEvent{}, err
			}
			history.Messages = append(history.Messages, msg)
		}
		return history, nil
	}

	var history models.ChatHistoryEvent
	if err := json.Unmarshal(data, &history); err != nil {
		return models.ChatHistoryEvent{}, err
	}
	return history, nil
}
