package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// Email is the external identity; ID is the internal subject id posts are keyed by.
// PasswordHash holds a self-describing bcrypt digest and never leaves the service.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
