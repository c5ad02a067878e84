package booking

import (
	"time"

	"github.com/google/uuid"
)

// Booking statuses.
const (
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
)

// DayState is the capacity/occupancy record for one calendar date. The
// invariant 0 <= BookedCount <= MaxSlots is enforced by every writer through
// conditional updates; BookedCount always equals the number of active
// bookings for the date.
type DayState struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Date        time.Time `db:"date" json:"date"`
	MaxSlots    int       `db:"max_slots" json:"max_slots"`
	BookedCount int       `db:"booked_count" json:"booked_count"`
	IsCancelled bool      `db:"is_cancelled" json:"is_cancelled"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Booking is one booking attempt. At most one row per (patient, date) may be
// in status booked at a time; rows are never physically deleted.
type Booking struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	PatientID         int64      `db:"patient_id" json:"patient_id"`
	Date              time.Time  `db:"date" json:"date"`
	Status            string     `db:"status" json:"status"`
	CancelledByDoctor bool       `db:"cancelled_by_doctor" json:"cancelled_by_doctor"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	CancelledAt       *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// WaitlistEntry is one patient enrolled for priority promotion. The waitlist
// is a one-shot, one-day priority window: the nightly reset consumes every
// entry in enrollment order whether or not promotion succeeded.
type WaitlistEntry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  int64     `db:"patient_id" json:"patient_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// Today truncates the current UTC time to its calendar date.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
