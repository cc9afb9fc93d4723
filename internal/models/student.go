package models

import "time"

// Student represents a learner registered in the institution.
type Student struct {
	ID        string     `db:"id" json:"id"`
	Code      string     `db:"code" json:"code"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	DNI       *string    `db:"dni" json:"dni,omitempty"`
	BirthDate *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Grade     string     `db:"grade" json:"grade"`
	Section   string     `db:"section" json:"section"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// StudentFilter scopes student listings.
type StudentFilter struct {
	Grade  string
	Active *bool
}
