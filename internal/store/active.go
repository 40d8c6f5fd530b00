// Package store holds the client's local view of rooms, the active
// transcript, and user profiles. The stores are not safe for concurrent
// use on their own; State serializes access to them.
package store

// ActiveRoom is the single mutable cell naming the room whose transcript
// is loaded. Handlers read it at dispatch time, never a copy taken earlier.
type ActiveRoom struct {
	id string
}

func (a *ActiveRoom) ID() string {
	return a.id
}

func (a *ActiveRoom) Is(roomID string) bool {
	return a.id != "" && a.id == roomID
}

func (a *ActiveRoom) set(roomID string) {
	a.id = roomID
}
