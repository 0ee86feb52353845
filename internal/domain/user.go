package domain

import "time"

// Role is the closed set of user roles. Raw strings from the wire must go
// through ParseRole before they are trusted.
type Role string

const (
	RoleEndUser Role = "end_user"
	RoleAgent   Role = "agent"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a raw role value against the closed enum.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleEndUser, RoleAgent, RoleAdmin:
		return Role(raw), true
	}
	return "", false
}

// IsStaff reports whether the role carries triage rights.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// User is the domain model for everyone who touches tickets; requesters,
// agents and admins are distinguished only by Role.
type User struct {
	ID        string
	Username  string
	Email     string
	FullName  string
	Role      Role
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanBeAssignee reports whether tickets may be assigned to this user.
func (u *User) CanBeAssignee() bool {
	return u.IsActive && u.Role.IsStaff()
}
