package store

import "chat-client/internal/models"

// MessageStore holds the transcript of the active room only. Transcripts
// of other rooms are not cached; they are re-fetched on join.
type MessageStore struct {
	active   *ActiveRoom
	roomID   string
	messages []models.Message
}

func NewMessageStore(active *ActiveRoom) *MessageStore {
	return &MessageStore{active: active}
}

// ReplaceHistory installs the snapshot returned by chat_history.
func (s *MessageStore) ReplaceHistory(roomID string, messages []models.Message) {
	s.roomID = roomID
	s.messages = append([]models.Message(nil), messages...)
}

// Append adds msg to the transcript. It is a no-op unless roomID is the
// active room at the time of the call, or when msg.ID is already present.
func (s *MessageStore) Append(roomID string, msg models.Message) bool {
	if !s.active.Is(roomID) {
		return false
	}
	if s.roomID != roomID {
		s.roomID = roomID
		s.messages = nil
	}
	if msg.ID != "" && s.indexOf(msg.ID) >= 0 {
		return false
	}
	s.messages = append(s.messages, msg)
	return true
}

// Patch replaces the stored message with the same id. The id is kept, and
// an update naming a different room than the loaded one is ignored.
func (s *MessageStore) Patch(update models.Message) bool {
	if update.RoomID != "" && update.RoomID != s.roomID {
		return false
	}
	i := s.indexOf(update.ID)
	if i < 0 {
		return false
	}

	current := s.messages[i]
	if update.RoomID == "" {
		update.RoomID = current.RoomID
	}
	if update.Timestamp.IsZero() {
		update.Timestamp = current.Timestamp
	}
	if update.SenderID == "" {
		update.SenderID = current.SenderID
		update.SenderName = current.SenderName
		update.SenderAvatar = current.SenderAvatar
	}
	if update.Type == "" {
		update.Type = current.Type
	}
	s.messages[i] = update
	return true
}

func (s *MessageStore) Remove(messageID string) bool {
	i := s.indexOf(messageID)
	if i < 0 {
		return false
	}
	s.messages = append(s.messages[:i], s.messages[i+1:]...)
	return true
}

// ApplyProfile rewrites sender name and avatar on every message from
// userID. Empty values are not applied. It returns the number of
// messages touched.
func (s *MessageStore) ApplyProfile(userID, name, avatar string) int {
	n := 0
	for i := range s.messages {
		if s.messages[i].SenderID != userID {
			continue
		}
		if name != "" {
			s.messages[i].SenderName = name
		}
		if avatar != "" {
			s.messages[i].SenderAvatar = avatar
		}
		n++
	}
	return n
}

// Clear discards the transcript. roomID is the room it will belong to
// once chat_history arrives.
func (s *MessageStore) Clear(roomID string) {
	s.roomID = roomID
	s.messages = nil
}

func (s *MessageStore) RoomID() string {
	return s.roomID
}

func (s *MessageStore) Len() int {
	return len(s.messages)
}

func (s *MessageStore) Get(messageID string) (models.Message, bool) {
	if i := s.indexOf(messageID); i >= 0 {
		return s.messages[i], true
	}
	return models.Message{}, false
}

func (s *MessageStore) Messages() []models.Message {
	return append([]models.Message(nil), s.messages...)
}

func (s *MessageStore) indexOf(messageID string) int {
	if messageID == "" {
		return -1
	}
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}
