package models

import "time"

// Shift identifies one of the two daily attendance windows.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

// Valid returns true when the shift is a supported value.
func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

// Method records how an attendance fact was captured.
type Method string

const (
	MethodManual Method = "manual"
	MethodQR     Method = "qr"
)

// Valid returns true when the method is a supported value.
func (m Method) Valid() bool {
	return m == MethodManual || m == MethodQR
}

// AttendanceFact is the single presence decision for one
// (student, date, shift) triple. Subsequent submissions for the same triple
// overwrite it; no history is kept.
type AttendanceFact struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Date       time.Time `db:"date" json:"date"`
	Shift      Shift     `db:"shift" json:"shift"`
	Present    bool      `db:"present" json:"present"`
	TimeOfDay  *string   `db:"time_of_day" json:"time_of_day,omitempty"`
	Method     Method    `db:"method" json:"method"`
	RecordedBy string    `db:"recorded_by" json:"recorded_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceRow is one line of the per-grade attendance projection. Students
// with no fact for the requested date/shift appear with the zero defaults.
type AttendanceRow struct {
	StudentID string  `json:"student_id"`
	Code      string  `json:"code"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	DNI       *string `json:"dni,omitempty"`
	Grade     string  `json:"grade"`
	Present   bool    `json:"present"`
	TimeOfDay string  `json:"time_of_day"`
	Method    string  `json:"method"`
}
