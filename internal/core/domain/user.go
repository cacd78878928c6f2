package domain

import "time"

// User is the chat participant. Profile fields are owned by the profile
// subsystem; the realtime core only ever writes Online.
type User struct {
	ID           string    `json:"uid"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Online       bool      `json:"online"`
	Verified     bool      `json:"verified"`
	ProfileImage string    `json:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
