package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// SQLStore journals to the session_attempts and handoff_status tables
// created by db.Open.
type SQLStore struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{DB: db, Now: time.Now} }

func (s *SQLStore) RecordAttempt(ctx context.Context, instanceID, studentID string, a quiz.AttemptResult) error {
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	var spent sql.NullInt64
	if a.TimeSpentSeconds != nil {
		spent = sql.NullInt64{Int64: int64(*a.TimeSpentSeconds), Valid: true}
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO session_attempts
		  (id, instance_id, student_id, attempt_index, score, answers_json, time_spent_sec, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (instance_id, student_id, attempt_index)
		DO UPDATE SET score=$5, answers_json=$6, time_spent_sec=$7, submitted_at=$8`,
		uuid.NewString(), instanceID, studentID, a.AttemptIndex, a.Result, string(answers), spent, a.SubmittedAt.Unix())
	return err
}

// Attempts lists the journaled attempts of a session by attempt index.
func (s *SQLStore) Attempts(ctx context.Context, instanceID, studentID string) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, attempt_index, score, answers_json, time_spent_sec, submitted_at
		  FROM session_attempts
		 WHERE instance_id=$1 AND student_id=$2
		 ORDER BY attempt_index`, instanceID, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e         = Entry{InstanceID: instanceID, StudentID: studentID}
			answers   string
			spent     sql.NullInt64
			submitted int64
		)
		if err := rows.Scan(&e.ID, &e.Attempt.AttemptIndex, &e.Attempt.Result, &answers, &spent, &submitted); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answers), &e.Attempt.Answers); err != nil {
			return nil, fmt.Errorf("attempt %s: decode answers: %w", e.ID, err)
		}
		if spent.Valid {
			secs := int(spent.Int64)
			e.Attempt.TimeSpentSeconds = &secs
		}
		e.Attempt.SubmittedAt = time.Unix(submitted, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkHandoffPending(ctx context.Context, instanceID, studentID string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO handoff_status (instance_id, student_id, status, retries, updated_at)
		VALUES ($1,$2,'pending',0,$3)
		ON CONFLICT (instance_id, student_id)
		DO UPDATE SET status='pending', updated_at=$3`,
		instanceID, studentID, s.Now().Unix())
	return err
}

func (s *SQLStore) MarkHandoffOK(ctx context.Context, instanceID, studentID string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE handoff_status
		   SET status='ok', last_error=NULL, updated_at=$3
		 WHERE instance_id=$1 AND student_id=$2`,
		instanceID, studentID, s.Now().Unix())
	return err
}

func (s *SQLStore) MarkHandoffFailed(ctx context.Context, instanceID, studentID, lastErr string) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO handoff_status (instance_id, student_id, status, retries, last_error, updated_at)
		VALUES ($1,$2,'failed',1,$3,$4)
		ON CONFLICT (instance_id, student_id)
		DO UPDATE SET
			status='failed',
			retries=handoff_status.retries+1,
			last_error=$3,
			updated_at=$4`,
		instanceID, studentID, lastErr, s.Now().Unix())
	return err
}

// Handoff returns the handoff state of a session, or ErrNotFound.
func (s *SQLStore) Handoff(ctx context.Context, instanceID, studentID string) (Handoff, error) {
	h := Handoff{InstanceID: instanceID, StudentID: studentID}
	var (
		lastErr sql.NullString
		updated int64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT status, retries, last_error, updated_at
		  FROM handoff_status
		 WHERE instance_id=$1 AND student_id=$2`, instanceID, studentID).
		Scan(&h.Status, &h.Retries, &lastErr, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Handoff{}, ErrNotFound
	}
	if err != nil {
		return Handoff{}, err
	}
	h.LastError = lastErr.String
	h.UpdatedAt = time.Unix(updated, 0).UTC()
	return h, nil
}

// PendingHandoffs lists sessions whose results have not reached the
// activity service yet.
func (s *SQLStore) PendingHandoffs(ctx context.Context) ([]Handoff, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT instance_id, student_id, status, retries, last_error, updated_at
		  FROM handoff_status
		 WHERE status <> 'ok'
		 ORDER BY updated_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Handoff
	for rows.Next() {
		var (
			h       Handoff
			lastErr sql.NullString
			updated int64
		)
		if err := rows.Scan(&h.InstanceID, &h.StudentID, &h.Status, &h.Retries, &lastErr, &updated); err != nil {
			return nil, err
		}
		h.LastError = lastErr.String
		h.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}
