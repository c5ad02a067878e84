// Package notification is the outbound "notify patient" boundary. Delivery is
// fire-and-forget: the booking engine never blocks on it and no delivery
// guarantee is made.
package notification

import (
	"context"

	"github.com/rs/zerolog"
)

// Fixed message texts sent through the sink.
const (
	MsgDayCancelled = "Your appointment was cancelled by the doctor. You can subscribe for priority booking for tomorrow."
	MsgPromoted     = "You have been booked from the priority waitlist for today."
)

// Sink delivers a message to a patient.
type Sink interface {
	Notify(ctx context.Context, patientID int64, message string) error
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(ctx context.Context, patientID int64, message string) error

func (f SinkFunc) Notify(ctx context.Context, patientID int64, message string) error {
	return f(ctx, patientID, message)
}

// LogSink writes notifications to the structured log instead of a real
// delivery channel.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, patientID int64, message string) error {
	s.logger.Info().
		Int64("patient_id", patientID).
		Str("message", message).
		Msg("patient notification")
	return nil
}
