package database

import (
	"context"
	"errors"
)

// Credentials is the typed view over the token and avatar slots. Both
// slots are always cleared together.
type Credentials struct {
	store SlotStore
}

func NewCredentials(store SlotStore) *Credentials {
	return &Credentials{store: store}
}

func (c *Credentials) Token(ctx context.Context) (string, error) {
	return c.store.Get(ctx, SlotToken)
}

func (c *Credentials) SaveToken(ctx context.Context, token string) error {
	return c.store.Set(ctx, SlotToken, token)
}

// Avatar returns the last-known avatar URL, or "" when none is stored.
func (c *Credentials) Avatar(ctx context.Context) (string, error) {
	avatar, err := c.store.Get(ctx, SlotAvatar)
	if errors.Is(err, ErrSlotEmpty) {
		return "", nil
	}
	return avatar, err
}

func (c *Credentials) SaveAvatar(ctx context.Context, avatar string) error {
	if avatar == "" {
		return nil
	}
	return c.store.Set(ctx, SlotAvatar, avatar)
}

func (c *Credentials) Clear(ctx context.Context) error {
	return c.store.Delete(ctx, SlotToken, SlotAvatar)
}
