package handlers

import (
	"encoding/json"
	"fmt"

	"chat-client/internal/models"
)

func (d *Dispatcher) handleAvatarUpdated(data json.RawMessage) error {
	var evt models.AvatarUpdatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.UserID == "" {
		return fmt.Errorf("avatar_updated without user id")
	}
	d.applyProfile(models.Profile{UserID: evt.UserID, Avatar: evt.Avatar})
	return nil
}

func (d *Dispatcher) handleNameUpdated(data json.RawMessage) error {
	var evt models.NameUpdatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return err
	}
	if evt.UserID == "" {
		return fmt.Errorf("name_updated without user id")
	}
	d.applyProfile(models.Profile{UserID: evt.UserID, Name: evt.Name})
	return nil
}

func (d *Dispatcher) handleMyProfile(data json.RawMessage) error {
	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	me := d.state.Profiles.SetMe(p)
	if me.UserID != "" {
		d.state.Messages.ApplyProfile(me.UserID, p.Name, p.Avatar)
	}
	if p.Avatar != "" {
		d.onOwnAvatar(p.Avatar)
	}
	return nil
}

// applyProfile updates the cache and patches every loaded message from
// the same sender.
func (d *Dispatcher) applyProfile(p models.Profile) {
	d.state.Profiles.Update(p)
	d.state.Messages.ApplyProfile(p.UserID, p.Name, p.Avatar)
	if p.Avatar != "" && d.state.Profiles.IsSelf(p.UserID) {
		d.onOwnAvatar(p.Avatar)
	}
}
