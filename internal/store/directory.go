package store

import "chat-client/internal/models"

// Directory backs private-room creation: the user list and the outcome of
// the last lookup by email.
type Directory struct {
	users    []models.User
	found    *models.User
	notFound string
}

func NewDirectory() *Directory {
	return &Directory{}
}

func (d *Directory) ReplaceUsers(users []models.User) {
	d.users = append([]models.User(nil), users...)
}

func (d *Directory) SetFound(u models.User) {
	d.found = &u
	d.notFound = ""
}

func (d *Directory) SetNotFound(email string) {
	d.found = nil
	d.notFound = email
}

func (d *Directory) Users() []models.User {
	return append([]models.User(nil), d.users...)
}

// Lookup returns the last found user, or the email that was not found.
func (d *Directory) Lookup() (found *models.User, notFound string) {
	if d.found != nil {
		u := *d.found
		return &u, ""
	}
	return nil, d.notFound
}

func (d *Directory) Reset() {
	d.users = nil
	d.found = nil
	d.notFound = ""
}
