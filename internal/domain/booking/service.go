package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Akil08/booking-api/internal/platform/notification"
)

// Expected engine outcomes. These are local results surfaced to the caller as
// structured rejections, never as 5xx failures; anything else that comes out
// of the store is a transient error the caller may retry.
var (
	ErrAlreadyBooked       = errors.New("already booked for today")
	ErrNoSlotsAvailable    = errors.New("no slots available")
	ErrNoActiveBooking     = errors.New("no active booking found")
	ErrDayAlreadyCancelled = errors.New("day already cancelled")
	ErrBookingFailed       = errors.New("booking failed")

	// ErrDuplicateBooking is returned by BookingRepository.Create when the
	// active-booking uniqueness constraint rejects a concurrent duplicate.
	ErrDuplicateBooking = errors.New("duplicate active booking")
)

// IsExpected reports whether err is one of the engine's expected outcomes
// rather than a transient store failure.
func IsExpected(err error) bool {
	return errors.Is(err, ErrAlreadyBooked) ||
		errors.Is(err, ErrNoSlotsAvailable) ||
		errors.Is(err, ErrNoActiveBooking) ||
		errors.Is(err, ErrDayAlreadyCancelled) ||
		errors.Is(err, ErrBookingFailed)
}

// TxRunner executes a function inside a single storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Result is the outcome of a successful engine operation.
type Result struct {
	Message   string
	BookingID *uuid.UUID
}

// Service is the slot-allocation engine. Every public operation runs as one
// atomic transaction so the day counter and the booking records can never
// diverge, even under concurrent callers or a crash mid-operation.
type Service struct {
	tx           TxRunner
	dayStates    DayStateRepository
	bookings     BookingRepository
	waitlist     WaitlistRepository
	sink         notification.Sink
	defaultSlots int
	logger       zerolog.Logger
}

func NewService(tx TxRunner, days DayStateRepository, bookings BookingRepository,
	waitlist WaitlistRepository, sink notification.Sink, defaultSlots int, logger zerolog.Logger) *Service {
	return &Service{
		tx:           tx,
		dayStates:    days,
		bookings:     bookings,
		waitlist:     waitlist,
		sink:         sink,
		defaultSlots: defaultSlots,
		logger:       logger,
	}
}

// EnsureToday lazily creates today's day state row. Called at process startup
// and at the top of each engine operation so no request ever sees a missing
// day row.
func (s *Service) EnsureToday(ctx context.Context) error {
	return s.dayStates.EnsureDay(ctx, Today(), s.defaultSlots)
}

// Book reserves one of today's slots for the patient. The capacity check and
// the increment are a single conditional write, so for any number of
// concurrent callers the active bookings for a date never exceed max_slots.
func (s *Service) Book(ctx context.Context, patientID int64) (*Result, error) {
	today := Today()
	var res *Result

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dayStates.EnsureDay(ctx, today, s.defaultSlots); err != nil {
			return fmt.Errorf("ensure day: %w", err)
		}

		existing, err := s.bookings.GetActive(ctx, patientID, today)
		if err != nil {
			return fmt.Errorf("check active booking: %w", err)
		}
		if existing != nil {
			return ErrAlreadyBooked
		}

		reserved, err := s.dayStates.TryReserveSlot(ctx, today)
		if err != nil {
			return fmt.Errorf("reserve slot: %w", err)
		}
		if !reserved {
			// Covers both "day full" and "day cancelled"; the caller is not
			// told which.
			return ErrNoSlotsAvailable
		}

		b := &Booking{PatientID: patientID, Date: today}
		if err := s.bookings.Create(ctx, b); err != nil {
			if errors.Is(err, ErrDuplicateBooking) {
				// A concurrent duplicate slipped past the existence check.
				// The rollback also undoes the counter increment.
				return ErrBookingFailed
			}
			return fmt.Errorf("create booking: %w", err)
		}

		res = &Result{Message: "Booked", BookingID: &b.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("patient_id", patientID).Str("booking_id", res.BookingID.String()).Msg("slot booked")
	return res, nil
}

// Cancel releases the patient's active booking for today. The status flip and
// the counter decrement commit together; the freed slot stays unfilled until
// the next daily reset, by policy.
func (s *Service) Cancel(ctx context.Context, patientID int64) (*Result, error) {
	today := Today()

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dayStates.EnsureDay(ctx, today, s.defaultSlots); err != nil {
			return fmt.Errorf("ensure day: %w", err)
		}

		active, err := s.bookings.GetActive(ctx, patientID, today)
		if err != nil {
			return fmt.Errorf("find active booking: %w", err)
		}
		if active == nil {
			return ErrNoActiveBooking
		}

		if err := s.bookings.Cancel(ctx, active.ID, false); err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}
		if err := s.dayStates.ReleaseSlot(ctx, today); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("patient_id", patientID).Msg("booking cancelled")
	return &Result{Message: "Booking cancelled"}, nil
}

// SubscribePriority enrolls the patient on the priority waitlist for the next
// reset cycle. Idempotent: re-subscribing is a success, not an error.
func (s *Service) SubscribePriority(ctx context.Context, patientID int64) (*Result, error) {
	if err := s.EnsureToday(ctx); err != nil {
		return nil, fmt.Errorf("ensure day: %w", err)
	}

	created, err := s.waitlist.Enroll(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("enroll: %w", err)
	}
	if !created {
		return &Result{Message: "Already subscribed"}, nil
	}
	return &Result{Message: "Subscribed for priority booking"}, nil
}

// DoctorCancelDay cancels every active booking for today and closes the day
// to further bookings until the next reset. Affected patients are notified
// after commit, best effort.
func (s *Service) DoctorCancelDay(ctx context.Context) (*Result, error) {
	today := Today()
	var affected []int64

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dayStates.EnsureDay(ctx, today, s.defaultSlots); err != nil {
			return fmt.Errorf("ensure day: %w", err)
		}

		day, err := s.dayStates.GetForUpdate(ctx, today)
		if err != nil {
			return fmt.Errorf("load day state: %w", err)
		}
		if day.IsCancelled {
			return ErrDayAlreadyCancelled
		}

		affected, err = s.bookings.CancelAllActive(ctx, today, true)
		if err != nil {
			return fmt.Errorf("cancel active bookings: %w", err)
		}
		if err := s.dayStates.MarkCancelled(ctx, today); err != nil {
			return fmt.Errorf("mark day cancelled: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("affected", len(affected)).Msg("day cancelled by doctor")
	s.notifyAll(affected, notification.MsgDayCancelled)

	return &Result{Message: "Day cancelled and patients notified"}, nil
}

// RunDailyReset is the scheduler entry point: one transaction that wipes
// today's state clean and drains the priority waitlist in enrollment order.
// Idempotent, so a manual re-run or a crash-and-retry is always safe; a crash
// mid-run rolls back to the fully-old state.
func (s *Service) RunDailyReset(ctx context.Context) error {
	today := Today()
	var promoted []int64

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.dayStates.ResetDay(ctx, today, s.defaultSlots); err != nil {
			return fmt.Errorf("reset day state: %w", err)
		}

		// Clear stragglers from a prior cycle. Bookings are date-scoped so
		// this is a safety net, not the expected path.
		if _, err := s.bookings.CancelAllActive(ctx, today, false); err != nil {
			return fmt.Errorf("clear leftover bookings: %w", err)
		}

		queue, err := s.waitlist.ListInOrder(ctx)
		if err != nil {
			return fmt.Errorf("load waitlist: %w", err)
		}

		for _, entry := range queue {
			active, err := s.bookings.GetActive(ctx, entry.PatientID, today)
			if err != nil {
				return fmt.Errorf("check active booking: %w", err)
			}
			if active != nil {
				continue
			}

			reserved, err := s.dayStates.TryReserveSlot(ctx, today)
			if err != nil {
				return fmt.Errorf("reserve slot: %w", err)
			}
			if !reserved {
				// Capacity exhausted: the rest of the queue is dropped, not
				// carried over.
				break
			}

			b := &Booking{PatientID: entry.PatientID, Date: today}
			if err := s.bookings.Create(ctx, b); err != nil {
				return fmt.Errorf("promote patient %d: %w", entry.PatientID, err)
			}
			promoted = append(promoted, entry.PatientID)
		}

		// The waitlist is a one-day priority window: every entry read above
		// is consumed whether or not it was promoted.
		if err := s.waitlist.DeleteAll(ctx, queue); err != nil {
			return fmt.Errorf("drain waitlist: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int("promoted", len(promoted)).Msg("daily reset completed")
	s.notifyAll(promoted, notification.MsgPromoted)
	return nil
}

// ListToday returns today's bookings for the doctor's overview.
func (s *Service) ListToday(ctx context.Context, limit, offset int) ([]*Booking, int, error) {
	return s.bookings.ListByDate(ctx, Today(), limit, offset)
}

// TodayState returns today's day state, creating it if absent.
func (s *Service) TodayState(ctx context.Context) (*DayState, error) {
	if err := s.EnsureToday(ctx); err != nil {
		return nil, fmt.Errorf("ensure day: %w", err)
	}
	return s.dayStates.Get(ctx, Today())
}

// notifyAll pushes the fixed message to each patient through the sink without
// blocking the caller. Delivery failures are logged and dropped.
func (s *Service) notifyAll(patients []int64, message string) {
	if len(patients) == 0 {
		return
	}
	go func() {
		for _, pid := range patients {
			if err := s.sink.Notify(context.Background(), pid, message); err != nil {
				s.logger.Warn().Err(err).Int64("patient_id", pid).Msg("notification failed")
			}
		}
	}()
}
