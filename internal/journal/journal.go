// Package journal keeps a local record of submitted attempts and of the
// status of the final result handoff.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Handoff statuses.
const (
	StatusPending = "pending"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

var ErrNotFound = errors.New("journal: not found")

// Entry is one journaled attempt.
type Entry struct {
	ID         string
	InstanceID string
	StudentID  string
	Attempt    quiz.AttemptResult
}

// Handoff is the last known result handoff state of a session.
type Handoff struct {
	InstanceID string
	StudentID  string
	Status     string
	Retries    int
	LastError  string
	UpdatedAt  time.Time
}

// Store is implemented by SQLStore and Memory.
type Store interface {
	RecordAttempt(ctx context.Context, instanceID, studentID string, a quiz.AttemptResult) error
	MarkHandoffPending(ctx context.Context, instanceID, studentID string) error
	MarkHandoffOK(ctx context.Context, instanceID, studentID string) error
	MarkHandoffFailed(ctx context.Context, instanceID, studentID, lastErr string) error

	Attempts(ctx context.Context, instanceID, studentID string) ([]Entry, error)
	Handoff(ctx context.Context, instanceID, studentID string) (Handoff, error)
	PendingHandoffs(ctx context.Context) ([]Handoff, error)
}

// Open returns the journal for driver: "memory", or a database driver
// understood by db.Open. The returned closer releases the database.
func Open(ctx context.Context, driver, dsn string) (Store, func() error, error) {
	if driver == "" || driver == "memory" {
		return NewMemory(), func() error { return nil }, nil
	}
	conn, err := db.Open(ctx, db.Driver(driver), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal (%s): %w", driver, err)
	}
	return NewSQLStore(conn), conn.Close, nil
}
