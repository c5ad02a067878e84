package scheduler

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestNextRun_LaterToday(t *testing.T) {
	d := NewDaily("daily-reset", 3, 0, nil, testLogger())

	after := time.Date(2026, 8, 29, 1, 30, 0, 0, time.UTC)
	next := d.NextRun(after)

	want := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRun_Tomorrow(t *testing.T) {
	d := NewDaily("daily-reset", 3, 0, nil, testLogger())

	after := time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC)
	next := d.NextRun(after)

	want := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestNextRun_ExactlyAtTrigger(t *testing.T) {
	d := NewDaily("daily-reset", 3, 0, nil, testLogger())

	// At exactly 03:00 the next run is tomorrow, not now.
	after := time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)
	next := d.NextRun(after)

	want := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, next)
	}
}

func TestRun_ExecutesJob(t *testing.T) {
	ran := 0
	d := NewDaily("daily-reset", 3, 0, func(ctx context.Context) error {
		ran++
		return nil
	}, testLogger())

	d.Run(context.Background())
	d.Run(context.Background())

	if ran != 2 {
		t.Errorf("expected job to run twice, ran %d times", ran)
	}
}

func TestRun_JobFailureDoesNotPanic(t *testing.T) {
	d := NewDaily("daily-reset", 3, 0, func(ctx context.Context) error {
		return errors.New("store unavailable")
	}, testLogger())

	// A failed run is logged and absorbed; it must not propagate.
	d.Run(context.Background())
}

func TestStart_StopsOnCancel(t *testing.T) {
	d := NewDaily("daily-reset", 3, 0, func(ctx context.Context) error {
		t.Error("job must not run before its trigger time")
		return nil
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	// Give the loop a moment to observe cancellation without firing the job.
	time.Sleep(20 * time.Millisecond)
}
