package models

import (
	"strings"

	"github.com/google/uuid"
)

// Role represents a user's role as carried in the identity token.
type Role int

const (
	RoleViewer Role = iota
	RoleBroadcaster
	RoleAdmin
)

// ParseRole maps a claim string to a Role. Unknown or empty values map to RoleViewer.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "broadcaster":
		return RoleBroadcaster
	default:
		return RoleViewer
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleBroadcaster:
		return "broadcaster"
	default:
		return "viewer"
	}
}

// Identity is the verified caller supplied by the identity provider.
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	Role     Role      `json:"-"`
}
