package domain

import "time"

// User represents an account of the daycare application.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	HasAccess    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
