package models

import "time"

// User represents an account on this server. All catalog data is scoped
// to a user, so deleting a user cascades to their media and progress rows.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
