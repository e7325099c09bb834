package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// QuizSource loads a quiz definition. Unknown activities must fail.
type QuizSource interface {
	FetchQuiz(ctx context.Context, activityID string) (quiz.Config, error)
}

// InstanceAllocator deploys an activity for one student.
type InstanceAllocator interface {
	CreateInstance(ctx context.Context, activityID string, params map[string]any) (quiz.Instance, error)
}

// ResultSink persists the final attempts of a session.
type ResultSink interface {
	SubmitResults(ctx context.Context, result quiz.FinalResult) error
}

// Journal keeps a local record of attempts and of the handoff status.
// Failures are logged and never block a transition.
type Journal interface {
	RecordAttempt(ctx context.Context, instanceID, studentID string, a quiz.AttemptResult) error
	MarkHandoffPending(ctx context.Context, instanceID, studentID string) error
	MarkHandoffOK(ctx context.Context, instanceID, studentID string) error
	MarkHandoffFailed(ctx context.Context, instanceID, studentID, lastErr string) error
}

type Clock func() time.Time

// State is the position of a session in its lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInProgress
	StateSubmitted
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateInProgress:
		return "in_progress"
	case StateSubmitted:
		return "submitted"
	case StateCompleted:
		return "completed"
	default:
		return "uninitialized"
	}
}

type Option func(*Session)

func WithClock(now Clock) Option      { return func(s *Session) { s.now = now } }
func WithLogger(l *zap.Logger) Option { return func(s *Session) { s.log = l } }
func WithJournal(j Journal) Option    { return func(s *Session) { s.journal = j } }

// Session is one student's run through one quiz. It is not safe for
// concurrent use: the owner must deliver events one at a time.
type Session struct {
	source  QuizSource
	alloc   InstanceAllocator
	sink    ResultSink
	journal Journal
	log     *zap.Logger
	now     Clock

	state      State
	cfg        *quiz.Config
	instanceID string
	studentID  string
	current    int
	maxRetries int
	attempts   []quiz.AttemptResult
	answers    map[string]quiz.StudentAnswer
	approved   bool
	completed  bool
	startedAt  time.Time
	loading    bool
}

// New returns an uninitialized session bound to its collaborators.
func New(source QuizSource, alloc InstanceAllocator, sink ResultSink, opts ...Option) *Session {
	s := &Session{
		source:  source,
		alloc:   alloc,
		sink:    sink,
		log:     zap.NewNop(),
		now:     time.Now,
		answers: map[string]quiz.StudentAnswer{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize loads the quiz, allocates an instance and starts attempt 1.
// On any failure the session stays uninitialized and the call may be repeated.
func (s *Session) Initialize(ctx context.Context, activityID, studentID string) error {
	if s.state != StateUninitialized {
		return fmt.Errorf("initialize: %w (state=%s)", ErrInvalidState, s.state)
	}
	if s.loading {
		return ErrBusy
	}
	s.loading = true
	defer func() { s.loading = false }()

	cfg, err := s.source.FetchQuiz(ctx, activityID)
	if err != nil {
		return fmt.Errorf("fetch quiz %s: %w", activityID, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("load quiz %s: %w", activityID, err)
	}

	inst, err := s.alloc.CreateInstance(ctx, activityID, map[string]any{"student_id": studentID})
	if err != nil {
		return fmt.Errorf("create instance for %s: %w", activityID, err)
	}
	if inst.InstanceID == "" {
		return fmt.Errorf("create instance for %s: empty instance_id", activityID)
	}
	if sid, ok := inst.SessionParams["student_id"].(string); ok && sid != "" {
		studentID = sid
	}

	s.cfg = &cfg
	s.instanceID = inst.InstanceID
	s.studentID = studentID
	s.current = 1
	s.maxRetries = cfg.NumberOfRetries
	s.attempts = nil
	s.answers = map[string]quiz.StudentAnswer{}
	s.approved = false
	s.completed = false
	s.startedAt = s.now()
	s.state = StateInProgress

	s.log.Info("quiz session started",
		zap.String("activity_id", activityID),
		zap.String("instance_id", s.instanceID),
		zap.String("student_id", s.studentID),
		zap.Int("exercises", len(cfg.Exercises)),
		zap.Int("max_retries", s.maxRetries))
	return nil
}

// SetAnswer stores or overwrites the live answer for one exercise.
func (s *Session) SetAnswer(ans quiz.StudentAnswer) error {
	if s.state != StateInProgress {
		return fmt.Errorf("set answer: %w (state=%s)", ErrInvalidState, s.state)
	}
	if _, ok := s.cfg.Exercise(ans.ExerciseID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExercise, ans.ExerciseID)
	}
	ans.IsCorrect = nil
	s.answers[ans.ExerciseID] = ans
	return nil
}

// SubmitAttempt grades the live answers and closes the current attempt.
func (s *Session) SubmitAttempt(ctx context.Context) (quiz.AttemptResult, error) {
	if s.state != StateInProgress {
		return quiz.AttemptResult{}, fmt.Errorf("submit: %w (state=%s)", ErrInvalidState, s.state)
	}
	if missing := s.missingAnswers(); len(missing) > 0 {
		return quiz.AttemptResult{}, &IncompleteError{Missing: missing}
	}

	evaluated, score, err := grading.ScoreAttempt(s.answers, *s.cfg)
	if err != nil {
		return quiz.AttemptResult{}, fmt.Errorf("score attempt %d: %w", s.current, err)
	}

	now := s.now()
	res := quiz.AttemptResult{
		AttemptIndex: s.current,
		Answers:      evaluated,
		Result:       score,
		SubmittedAt:  now,
	}
	if !s.startedAt.IsZero() {
		secs := int(now.Sub(s.startedAt) / time.Second)
		res.TimeSpentSeconds = &secs
	}

	s.attempts = append(s.attempts, res)
	s.approved = grading.IsApproved(score, s.cfg.ApprovalThreshold)
	s.answers = res.Clone().Answers
	s.state = StateSubmitted

	if s.journal != nil {
		if err := s.journal.RecordAttempt(ctx, s.instanceID, s.studentID, res.Clone()); err != nil {
			s.log.Warn("journal attempt failed", zap.Int("attempt", res.AttemptIndex), zap.Error(err))
		}
	}
	s.log.Info("attempt submitted",
		zap.String("instance_id", s.instanceID),
		zap.Int("attempt", res.AttemptIndex),
		zap.Float64("score", score),
		zap.Bool("approved", s.approved))
	return res.Clone(), nil
}

// Retry opens the next attempt with a blank answer sheet.
func (s *Session) Retry() error {
	if s.state != StateSubmitted {
		return fmt.Errorf("retry: %w (state=%s)", ErrInvalidState, s.state)
	}
	if !grading.CanRetry(s.current, s.maxRetries, s.approved) {
		return ErrRetryNotAllowed
	}
	s.current++
	s.answers = map[string]quiz.StudentAnswer{}
	s.startedAt = s.now()
	s.state = StateInProgress
	s.log.Debug("retry started", zap.String("instance_id", s.instanceID), zap.Int("attempt", s.current))
	return nil
}

// CompleteQuiz hands every attempt to the result sink. It is idempotent: once
// the handoff has succeeded further calls do nothing.
func (s *Session) CompleteQuiz(ctx context.Context) error {
	if s.state == StateCompleted {
		return nil
	}
	if s.loading {
		return ErrBusy
	}
	if len(s.attempts) == 0 {
		return ErrNoAttempts
	}
	if s.state != StateSubmitted {
		return fmt.Errorf("complete: %w (state=%s)", ErrInvalidState, s.state)
	}
	s.loading = true
	defer func() { s.loading = false }()

	payload := quiz.NewFinalResult(s.instanceID, s.studentID, s.attempts)
	s.markHandoff(func(j Journal) error { return j.MarkHandoffPending(ctx, s.instanceID, s.studentID) })

	if err := s.sink.SubmitResults(ctx, payload); err != nil {
		s.markHandoff(func(j Journal) error { return j.MarkHandoffFailed(ctx, s.instanceID, s.studentID, err.Error()) })
		s.log.Warn("result handoff failed", zap.String("instance_id", s.instanceID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrHandoff, err)
	}
	s.markHandoff(func(j Journal) error { return j.MarkHandoffOK(ctx, s.instanceID, s.studentID) })

	s.completed = true
	s.state = StateCompleted
	s.log.Info("quiz completed",
		zap.String("instance_id", s.instanceID),
		zap.Int("attempts", len(s.attempts)),
		zap.Bool("approved", s.approved))
	return nil
}

func (s *Session) markHandoff(fn func(Journal) error) {
	if s.journal == nil {
		return
	}
	if err := fn(s.journal); err != nil {
		s.log.Warn("journal handoff status failed", zap.String("instance_id", s.instanceID), zap.Error(err))
	}
}

func (s *Session) missingAnswers() []string {
	var missing []string
	for _, ex := range s.cfg.Exercises {
		if a, ok := s.answers[ex.ID]; !ok || !a.Answered() {
			missing = append(missing, ex.ID)
		}
	}
	return missing
}

func (s *Session) State() State         { return s.state }
func (s *Session) CurrentAttempt() int  { return s.current }
func (s *Session) MaxRetries() int      { return s.maxRetries }
func (s *Session) Approved() bool       { return s.approved }
func (s *Session) Completed() bool      { return s.completed }
func (s *Session) Loading() bool        { return s.loading }
func (s *Session) InstanceID() string   { return s.instanceID }
func (s *Session) StudentID() string    { return s.studentID }
func (s *Session) StartedAt() time.Time { return s.startedAt }

// Config returns the loaded quiz, or false before Initialize succeeded.
func (s *Session) Config() (quiz.Config, bool) {
	if s.cfg == nil {
		return quiz.Config{}, false
	}
	return *s.cfg, true
}

// CanRetry reports whether Retry would currently succeed.
func (s *Session) CanRetry() bool {
	return s.state == StateSubmitted && grading.CanRetry(s.current, s.maxRetries, s.approved)
}

// Attempts returns copies of the submitted attempts in order.
func (s *Session) Attempts() []quiz.AttemptResult {
	out := make([]quiz.AttemptResult, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, a.Clone())
	}
	return out
}

// BestAttempt is informational; approval always follows the latest attempt.
func (s *Session) BestAttempt() (quiz.AttemptResult, bool) {
	best, ok := grading.BestAttempt(s.attempts)
	if !ok {
		return best, false
	}
	return best.Clone(), true
}

// Answers returns a copy of the live answer sheet in quiz order.
func (s *Session) Answers() []quiz.StudentAnswer {
	if s.cfg == nil {
		return nil
	}
	out := make([]quiz.StudentAnswer, 0, len(s.answers))
	for _, ex := range s.cfg.Exercises {
		if a, ok := s.answers[ex.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// IsHandoffError reports whether err came from the result sink.
func IsHandoffError(err error) bool { return errors.Is(err, ErrHandoff) }
