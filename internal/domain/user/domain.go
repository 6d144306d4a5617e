package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTeamLead Role = "teamlead"
	RoleEmployee Role = "employee"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrConflict    = errors.New("username already exists")
	ErrIDConflict  = errors.New("user id already exists")
	ErrInvalidRole = errors.New("invalid role")
)

// ParseRole normalises casing and rejects anything outside the closed set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeamLead, RoleEmployee:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

type User struct {
	ID           string    `json:"userId"`
	Username     string    `json:"userName"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated principal carried through a request.
type Identity struct {
	SubjectID   string
	DisplayName string
	Role        Role
}

func (u *User) Identity() Identity {
	return Identity{SubjectID: u.ID, DisplayName: u.Name, Role: u.Role}
}
