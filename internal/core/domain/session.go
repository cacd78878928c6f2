package domain

import "time"

// Session is the single live token record of a user. A new login replaces it.
type Session struct {
	UserID    string
	Token     string
	CreatedAt time.Time
}
