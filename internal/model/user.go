package model

import (
	"github.com/google/uuid"
)

// Role is the side of the marketplace a profile acts on.
type Role string

const (
	RoleEmployer Role = "employer"
	RoleSeeker   Role = "seeker"
)

func (r Role) Valid() bool {
	return r == RoleEmployer || r == RoleSeeker
}

// Profile is the public display identity of a user. Owned by the profile
// module; read-only here.
type Profile struct {
	ID        uuid.UUID `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Role      Role      `json:"role" db:"role"`
	AvatarURL *string   `json:"avatar_url,omitempty" db:"avatar_url"`
}

// DisplayName falls back to a neutral label when the profile has no name.
func (p *Profile) DisplayName() string {
	if p == nil || p.FullName == "" {
		return "Someone"
	}
	return p.FullName
}

// Job is the subset of a job posting this service needs.
type Job struct {
	ID         uuid.UUID `json:"id" db:"id"`
	EmployerID uuid.UUID `json:"employer_id" db:"employer_id"`
	Title      string    `json:"title" db:"title"`
}

// Session identifies the authenticated caller of an operation.
type Session struct {
	UserID uuid.UUID
	Role   Role
	Email  string
}
