package entity

import (
	"time"
)

// User owns boards. Passwords are stored as bcrypt hashes in PasswordHash.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a server-side login record referenced by the bearer token.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
