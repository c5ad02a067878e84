package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Akil08/booking-api/internal/platform/db"
)

// uniqueViolation is the Postgres error code raised when the partial unique
// index on active bookings rejects a concurrent duplicate.
const uniqueViolation = "23505"

// =========== DayState Repository ===========

type dayStateRepoPG struct{ pool *pgxpool.Pool }

func NewDayStateRepoPG(pool *pgxpool.Pool) DayStateRepository { return &dayStateRepoPG{pool: pool} }

func (r *dayStateRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const dayCols = `id, date, max_slots, booked_count, is_cancelled, updated_at`

func scanDayState(row pgx.Row) (*DayState, error) {
	var d DayState
	err := row.Scan(&d.ID, &d.Date, &d.MaxSlots, &d.BookedCount, &d.IsCancelled, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *dayStateRepoPG) EnsureDay(ctx context.Context, date time.Time, maxSlots int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO day_state (id, date, max_slots, booked_count, is_cancelled)
		VALUES ($1, $2, $3, 0, FALSE)
		ON CONFLICT (date) DO NOTHING`,
		uuid.New(), date, maxSlots)
	return err
}

func (r *dayStateRepoPG) Get(ctx context.Context, date time.Time) (*DayState, error) {
	return scanDayState(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dayCols+` FROM day_state WHERE date = $1`, date))
}

func (r *dayStateRepoPG) GetForUpdate(ctx context.Context, date time.Time) (*DayState, error) {
	return scanDayState(r.conn(ctx).QueryRow(ctx,
		`SELECT `+dayCols+` FROM day_state WHERE date = $1 FOR UPDATE`, date))
}

// TryReserveSlot is the single conditional write that closes the race window
// between concurrent bookers: the capacity check and the increment happen in
// one statement, and the database arbitrates which transaction wins.
func (r *dayStateRepoPG) TryReserveSlot(ctx context.Context, date time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE day_state
		SET booked_count = booked_count + 1, updated_at = NOW()
		WHERE date = $1 AND NOT is_cancelled AND booked_count < max_slots`,
		date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *dayStateRepoPG) ReleaseSlot(ctx context.Context, date time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE day_state
		SET booked_count = booked_count - 1, updated_at = NOW()
		WHERE date = $1 AND booked_count > 0`,
		date)
	return err
}

func (r *dayStateRepoPG) MarkCancelled(ctx context.Context, date time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE day_state
		SET is_cancelled = TRUE, updated_at = NOW()
		WHERE date = $1`,
		date)
	return err
}

func (r *dayStateRepoPG) ResetDay(ctx context.Context, date time.Time, maxSlots int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO day_state (id, date, max_slots, booked_count, is_cancelled)
		VALUES ($1, $2, $3, 0, FALSE)
		ON CONFLICT (date) DO UPDATE
		SET max_slots = EXCLUDED.max_slots, booked_count = 0,
			is_cancelled = FALSE, updated_at = NOW()`,
		uuid.New(), date, maxSlots)
	return err
}

// =========== Booking Repository ===========

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const bookingCols = `id, patient_id, date, status, cancelled_by_doctor, created_at, cancelled_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.PatientID, &b.Date, &b.Status, &b.CancelledByDoctor,
		&b.CreatedAt, &b.CancelledAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	b.Status = StatusBooked
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO booking (id, patient_id, date, status, cancelled_by_doctor)
		VALUES ($1, $2, $3, $4, FALSE)`,
		b.ID, b.PatientID, b.Date, b.Status)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateBooking
		}
		return err
	}
	return nil
}

func (r *bookingRepoPG) GetActive(ctx context.Context, patientID int64, date time.Time) (*Booking, error) {
	b, err := scanBooking(r.conn(ctx).QueryRow(ctx, `
		SELECT `+bookingCols+` FROM booking
		WHERE patient_id = $1 AND date = $2 AND status = $3`,
		patientID, date, StatusBooked))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *bookingRepoPG) Cancel(ctx context.Context, id uuid.UUID, byDoctor bool) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE booking
		SET status = $2, cancelled_at = NOW(), cancelled_by_doctor = $3
		WHERE id = $1`,
		id, StatusCancelled, byDoctor)
	return err
}

func (r *bookingRepoPG) CancelAllActive(ctx context.Context, date time.Time, byDoctor bool) ([]int64, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		UPDATE booking
		SET status = $2, cancelled_at = NOW(), cancelled_by_doctor = $3
		WHERE date = $1 AND status = $4
		RETURNING patient_id`,
		date, StatusCancelled, byDoctor, StatusBooked)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patients []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		patients = append(patients, pid)
	}
	return patients, rows.Err()
}

func (r *bookingRepoPG) ListByDate(ctx context.Context, date time.Time, limit, offset int) ([]*Booking, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM booking WHERE date = $1`, date).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+bookingCols+` FROM booking
		WHERE date = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		date, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

// =========== Waitlist Repository ===========

type waitlistRepoPG struct{ pool *pgxpool.Pool }

func NewWaitlistRepoPG(pool *pgxpool.Pool) WaitlistRepository { return &waitlistRepoPG{pool: pool} }

func (r *waitlistRepoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *waitlistRepoPG) Enroll(ctx context.Context, patientID int64) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO priority_waitlist (id, patient_id)
		VALUES ($1, $2)
		ON CONFLICT (patient_id) DO NOTHING`,
		uuid.New(), patientID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *waitlistRepoPG) ListInOrder(ctx context.Context) ([]*WaitlistEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, enrolled_at FROM priority_waitlist
		ORDER BY enrolled_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*WaitlistEntry
	for rows.Next() {
		var e WaitlistEntry
		if err := rows.Scan(&e.ID, &e.PatientID, &e.EnrolledAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *waitlistRepoPG) DeleteAll(ctx context.Context, entries []*WaitlistEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM priority_waitlist WHERE id = ANY($1)`, ids)
	return err
}

// =========== Transaction runner ===========

type pgTxRunner struct{ pool *pgxpool.Pool }

// NewPGTxRunner returns a TxRunner backed by the pool. The repositories above
// detect the transaction on the context and join it automatically.
func NewPGTxRunner(pool *pgxpool.Pool) TxRunner { return &pgTxRunner{pool: pool} }

func (r *pgTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}
