package models

import "time"

// User is a staff account able to record attendance.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	DNI          string    `db:"dni" json:"dni"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName renders the display name used in scan feedback and logs.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
