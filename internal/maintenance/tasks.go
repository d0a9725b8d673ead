package maintenance

import (
	"context"
	"time"
)

// SessionSweeper removes sessions whose expiry has passed.
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) (int64, error)
}

// CodeRotator replaces the shared check-in code.
type CodeRotator interface {
	Rotate() error
}

// SessionSweepTask deletes expired sessions every interval.
func SessionSweepTask(sweeper SessionSweeper, interval time.Duration) Task {
	return Task{
		Name:     "session-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			_, err := sweeper.SweepExpiredSessions(ctx)
			return err
		},
	}
}

// CodeRotationTask issues a new check-in code every interval.
func CodeRotationTask(rotator CodeRotator, interval time.Duration) Task {
	return Task{
		Name:     "checkin-rotate",
		Interval: interval,
		Run: func(context.Context) error {
			return rotator.Rotate()
		},
	}
}
