// Package identity exposes the read-only session identity contract. The
// engine consumes the current user id and role; it never mutates them.
package identity

import "context"

// Role is the session's access level.
type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RolePrincipal Role = "principal"
	RoleAdmin     Role = "admin"
)

// Session identifies the active user.
type Session struct {
	UserID string
	Role   Role
}

// Provider supplies the active session.
type Provider interface {
	Current(ctx context.Context) (Session, error)
}

// Static is a fixed-session provider for development and tests.
type Static struct {
	Session Session
}

func (s Static) Current(context.Context) (Session, error) {
	return s.Session, nil
}
