package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the platform-wide user role. Per-meetup roles live in MeetupInvite.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// User is a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPublic is the user shape exposed in API responses.
type UserPublic struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`
}

// ToPublic strips credentials for API responses.
func (u *User) ToPublic() UserPublic {
	return UserPublic{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
