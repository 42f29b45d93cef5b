package identity

import "time"

// User represents a registered job-board account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash []byte
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials carries sign-in input.
type Credentials struct {
	Email    string
	Password string
	Name     string
}
