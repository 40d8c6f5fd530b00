package database

import (
	"context"
	"errors"
)

// Named slots persisted across restarts.
const (
	SlotToken  = "token"
	SlotAvatar = "avatar"
)

var ErrSlotEmpty = errors.New("slot is empty")

// SlotStore persists small named string values. Get returns ErrSlotEmpty
// for a slot that was never set or has been deleted.
type SlotStore interface {
	Get(ctx context.Context, slot string) (string, error)
	Set(ctx context.Context, slot, value string) error
	Delete(ctx context.Context, slots ...string) error
	Close() error
}
