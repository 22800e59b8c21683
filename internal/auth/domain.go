package auth

import "time"

// Account is the credential-bearing view of a subject used at login.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}
