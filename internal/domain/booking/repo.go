package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DayStateRepository owns the day_state table. TryReserveSlot and ReleaseSlot
// are the conditional-update primitives every mutation path shares: the store
// collapses read-check-write into a single atomic statement, so two racing
// writers can never both observe spare capacity.
type DayStateRepository interface {
	// EnsureDay lazily creates the row for the date with the given capacity.
	// A no-op when the row already exists.
	EnsureDay(ctx context.Context, date time.Time, maxSlots int) error
	// Get returns the day state for the date.
	Get(ctx context.Context, date time.Time) (*DayState, error)
	// GetForUpdate returns the day state with the row locked for the
	// remainder of the surrounding transaction.
	GetForUpdate(ctx context.Context, date time.Time) (*DayState, error)
	// TryReserveSlot atomically increments booked_count when the day is not
	// cancelled and capacity remains. Returns false when no row qualified.
	TryReserveSlot(ctx context.Context, date time.Time) (bool, error)
	// ReleaseSlot atomically decrements booked_count, guarded so the counter
	// never goes below zero.
	ReleaseSlot(ctx context.Context, date time.Time) error
	// MarkCancelled sets is_cancelled on the date's row.
	MarkCancelled(ctx context.Context, date time.Time) error
	// ResetDay upserts the date's row to a clean slate with the given capacity.
	ResetDay(ctx context.Context, date time.Time, maxSlots int) error
}

// BookingRepository owns the booking table.
type BookingRepository interface {
	// Create inserts a new active booking. Returns ErrDuplicateBooking when
	// the active-booking uniqueness constraint is violated.
	Create(ctx context.Context, b *Booking) error
	// GetActive returns the active booking for (patient, date), or nil when
	// there is none.
	GetActive(ctx context.Context, patientID int64, date time.Time) (*Booking, error)
	// Cancel transitions one booking to cancelled.
	Cancel(ctx context.Context, id uuid.UUID, byDoctor bool) error
	// CancelAllActive transitions every active booking for the date to
	// cancelled and returns the affected patient ids.
	CancelAllActive(ctx context.Context, date time.Time, byDoctor bool) ([]int64, error)
	// ListByDate returns bookings for the date, newest first.
	ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Booking, int, error)
}

// WaitlistRepository owns the priority_waitlist table.
type WaitlistRepository interface {
	// Enroll inserts the patient, a no-op when already enrolled. Returns
	// true when a new entry was created.
	Enroll(ctx context.Context, patientID int64) (bool, error)
	// ListInOrder returns the full waitlist, earliest enrollment first.
	ListInOrder(ctx context.Context) ([]*WaitlistEntry, error)
	// DeleteAll removes the given entries.
	DeleteAll(ctx context.Context, entries []*WaitlistEntry) error
}
