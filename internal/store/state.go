package store

import (
	"sync"

	"chat-client/internal/models"
)

// State owns every store of one signed-in client. Writers go through
// Mutate, one at a time; readers take a Snapshot copy.
type State struct {
	mu sync.RWMutex

	active    *ActiveRoom
	Rooms     *RoomStore
	Messages  *MessageStore
	Profiles  *ProfileCache
	Directory *Directory
}

func NewState() *State {
	active := &ActiveRoom{}
	return &State{
		active:    active,
		Rooms:     NewRoomStore(active),
		Messages:  NewMessageStore(active),
		Profiles:  NewProfileCache(),
		Directory: NewDirectory(),
	}
}

// Mutate runs fn with exclusive access to the stores.
func (s *State) Mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Read runs fn with shared access. fn must not modify the stores.
func (s *State) Read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// ActiveRoomID reads the live active room.
func (s *State) ActiveRoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active.ID()
}

// SetActiveRoom switches rooms: the unread flag of roomID is cleared and
// the previous transcript is discarded pending chat_history.
func (s *State) SetActiveRoom(roomID string) {
	s.Mutate(func() {
		s.Rooms.SetActiveRoom(roomID)
		s.Messages.Clear(roomID)
	})
}

// Reset empties every store, as on logout.
func (s *State) Reset() {
	s.Mutate(func() {
		s.Rooms.Reset()
		s.Messages.Clear("")
		s.Profiles.Reset()
		s.Directory.Reset()
	})
}

// Snapshot is a read-only copy of the state for rendering.
type Snapshot struct {
	ActiveRoomID string
	Rooms        []models.Room
	Unread       map[string]bool
	Messages     []models.Message
	Me           models.Profile
	Users        []models.User
	FoundUser    *models.User
	NotFound     string
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found, notFound := s.Directory.Lookup()
	return Snapshot{
		ActiveRoomID: s.active.ID(),
		Rooms:        s.Rooms.List(),
		Unread:       s.Rooms.UnreadMap(),
		Messages:     s.Messages.Messages(),
		Me:           s.Profiles.Me(),
		Users:        s.Directory.Users(),
		FoundUser:    found,
		NotFound:     notFound,
	}
}
