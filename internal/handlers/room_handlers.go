package handlers

import (
	"encoding/json"
	"fmt"

	"chat-client/internal/models"
)

func (d *Dispatcher) handleRoomList(data json.RawMessage) error {
	var rooms []models.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return err
	}
	d.state.Rooms.Replace(rooms)
	return nil
}

func (d *Dispatcher) handleRoomCreated(data json.RawMessage) error {
	room, err := decodeRoom(data)
	if err != nil {
		return err
	}
	d.state.Rooms.Add(room)
	return nil
}

func (d *Dispatcher) handleRoomUpdated(data json.RawMessage) error {
	room, err := decodeRoom(data)
	if err != nil {
		return err
	}
	if !d.state.Rooms.Patch(room) {
		d.log.Debug("room_updated for unknown room %s", room.ID)
	}
	return nil
}

func (d *Dispatcher) handleRoomDeleted(data json.RawMessage) error {
	roomID := decodeRoomID(data)
	if roomID == "" {
		return fmt.Errorf("room_deleted without room id")
	}
	if d.state.Rooms.Remove(roomID) {
		d.state.Messages.Clear("")
		d.log.Info("Active room %s was deleted", roomID)
	}
	return nil
}

func decodeRoom(data json.RawMessage) (models.Room, error) {
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return models.Room{}, err
	}
	if room.ID == "" {
		return models.Room{}, fmt.Errorf("room without id")
	}
	return room, nil
}

// decodeRoomID accepts {"roomId": ...}, a room object, or a bare id string.
func decodeRoomID(data json.RawMessage) string {
	var evt models.RoomDeletedEvent
	if err := json.Unmarshal(data, &evt); err == nil && evt.RoomID != "" {
		return evt.RoomID
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err == nil && room.ID != "" {
		return room.ID
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id
	}
	return ""
}
