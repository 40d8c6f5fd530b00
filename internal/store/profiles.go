package store

import "chat-client/internal/models"

// ProfileCache keeps the latest name and avatar seen for each user,
// including the signed-in user. A name change made locally is held as
// tentative until the relay confirms or overrides it.
type ProfileCache struct {
	self          string
	profiles      map[string]models.Profile
	tentativeName string
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{profiles: make(map[string]models.Profile)}
}

func (c *ProfileCache) SetSelf(userID string) {
	c.self = userID
}

func (c *ProfileCache) Self() string {
	return c.self
}

func (c *ProfileCache) IsSelf(userID string) bool {
	return c.self != "" && c.self == userID
}

// Update merges non-empty fields of p into the cached record and returns
// the result. A confirmed name for the current user drops any tentative one.
func (c *ProfileCache) Update(p models.Profile) models.Profile {
	current := c.profiles[p.UserID]
	current.UserID = p.UserID
	if p.Name != "" {
		current.Name = p.Name
		if c.IsSelf(p.UserID) {
			c.tentativeName = ""
		}
	}
	if p.Avatar != "" {
		current.Avatar = p.Avatar
	}
	c.profiles[p.UserID] = current
	return current
}

// SetMe records the current user's own profile from my_profile.
func (c *ProfileCache) SetMe(p models.Profile) models.Profile {
	if p.UserID == "" {
		p.UserID = c.self
	} else if c.self == "" {
		c.self = p.UserID
	}
	return c.Update(p)
}

func (c *ProfileCache) SetTentativeName(name string) {
	c.tentativeName = name
}

func (c *ProfileCache) ClearTentativeName() {
	c.tentativeName = ""
}

func (c *ProfileCache) Get(userID string) (models.Profile, bool) {
	p, ok := c.profiles[userID]
	return p, ok
}

// Me returns the current user's profile with any tentative name applied.
func (c *ProfileCache) Me() models.Profile {
	me := c.profiles[c.self]
	me.UserID = c.self
	if c.tentativeName != "" {
		me.Name = c.tentativeName
	}
	return me
}

func (c *ProfileCache) Reset() {
	c.self = ""
	c.profiles = make(map[string]models.Profile)
	c.tentativeName = ""
}
