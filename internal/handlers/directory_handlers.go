package handlers

import (
	"encoding/json"

	"chat-client/internal/models"
)

func (d *Dispatcher) handleUserList(data json.RawMessage) error {
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return err
	}
	d.state.Directory.ReplaceUsers(users)
	return nil
}

func (d *Dispatcher) handleUserFound(data json.RawMessage) error {
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return err
	}
	d.state.Directory.SetFound(user)
	return nil
}

func (d *Dispatcher) handleUserNotFound(data json.RawMessage) error {
	var evt models.UserNotFoundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		var email string
		if err := json.Unmarshal(data, &email); err != nil {
			return err
		}
		evt.Email = email
	}
	d.state.Directory.SetNotFound(evt.Email)
	return nil
}
