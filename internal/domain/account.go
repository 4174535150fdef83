package domain

import "time"

// Account is the credential record behind a principal. Only the
// authentication layer touches it; the ticket engine sees principals.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
