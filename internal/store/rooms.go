package store

import "chat-client/internal/models"

type RoomStore struct {
	rooms  []models.Room
	unread map[string]bool
	active *ActiveRoom
}

func NewRoomStore(active *ActiveRoom) *RoomStore {
	return &RoomStore{
		unread: make(map[string]bool),
		active: active,
	}
}

// Replace swaps the whole room list, as delivered by room_list.
func (s *RoomStore) Replace(rooms []models.Room) {
	s.rooms = append([]models.Room(nil), rooms...)
}

// Add appends a room, or replaces it in place if the id is already known.
func (s *RoomStore) Add(room models.Room) {
	if i := s.indexOf(room.ID); i >= 0 {
		s.rooms[i] = room
		return
	}
	s.rooms = append(s.rooms, room)
}

// Patch updates name and background of a known room. Empty fields in
// the update leave the stored value alone.
func (s *RoomStore) Patch(update models.Room) bool {
	i := s.indexOf(update.ID)
	if i < 0 {
		return false
	}
	if update.Name != "" {
		s.rooms[i].Name = update.Name
	}
	if update.Background != "" {
		s.rooms[i].Background = update.Background
	}
	return true
}

// Remove drops a room and its unread flag. It reports whether the removed
// room was the active one, in which case the active reference is cleared.
func (s *RoomStore) Remove(roomID string) (wasActive bool) {
	if i := s.indexOf(roomID); i >= 0 {
		s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
	}
	delete(s.unread, roomID)

	if s.active.Is(roomID) {
		s.active.set("")
		return true
	}
	return false
}

func (s *RoomStore) Get(roomID string) (models.Room, bool) {
	if i := s.indexOf(roomID); i >= 0 {
		return s.rooms[i], true
	}
	return models.Room{}, false
}

func (s *RoomStore) List() []models.Room {
	return append([]models.Room(nil), s.rooms...)
}

// SetActiveRoom makes roomID active and clears its unread flag. It is the
// only way an unread flag is ever cleared.
func (s *RoomStore) SetActiveRoom(roomID string) {
	s.active.set(roomID)
	if roomID != "" {
		s.unread[roomID] = false
	}
}

func (s *RoomStore) ActiveRoomID() string {
	return s.active.ID()
}

func (s *RoomStore) MarkUnread(roomID string) {
	if roomID == "" || s.active.Is(roomID) {
		return
	}
	s.unread[roomID] = true
}

func (s *RoomStore) Unread(roomID string) bool {
	return s.unread[roomID]
}

func (s *RoomStore) UnreadMap() map[string]bool {
	out := make(map[string]bool, len(s.unread))
	for id, v := range s.unread {
		out[id] = v
	}
	return out
}

func (s *RoomStore) Reset() {
	s.rooms = nil
	s.unread = make(map[string]bool)
	s.active.set("")
}

func (s *RoomStore) indexOf(roomID string) int {
	for i := range s.rooms {
		if s.rooms[i].ID == roomID {
			return i
		}
	}
	return -1
}
