package model

import "time"

// UserID uniquely identifies a registered user
type UserID string

// User is a registered player. Phone is unique and is the key the
// attempt cap is enforced over.
type User struct {
	ID        UserID
	Name      string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
