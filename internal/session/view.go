package session

import (
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ExerciseView is an exercise as shown to the student. The answer key is
// present only when the quiz allows revealing it after submission.
type ExerciseView struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	NeedsNumeric  bool     `json:"needs_numeric,omitempty"`
}

// View is a read-only snapshot for the presentation layer.
type View struct {
	State             string               `json:"state"`
	ActivityID        string               `json:"activity_id,omitempty"`
	Title             string               `json:"title,omitempty"`
	InstanceID        string               `json:"instance_id,omitempty"`
	StudentID         string               `json:"student_id,omitempty"`
	CurrentAttempt    int                  `json:"current_attempt"`
	MaxRetries        int                  `json:"max_retries"`
	AttemptsRemaining int                  `json:"attempts_remaining"`
	TotalTimeMinutes  int                  `json:"total_time_minutes,omitempty"`
	ApprovalThreshold float64              `json:"approval_threshold"`
	ScoringPolicy     string               `json:"scoring_policy,omitempty"`
	Approved          bool                 `json:"approved"`
	Completed         bool                 `json:"completed"`
	CanRetry          bool                 `json:"can_retry"`
	Loading           bool                 `json:"loading"`
	StartedAt         *time.Time           `json:"started_at,omitempty"`
	Exercises         []ExerciseView       `json:"exercises,omitempty"`
	Answers           []quiz.StudentAnswer `json:"answers,omitempty"`
	Attempts          []quiz.AttemptResult `json:"attempts,omitempty"`
	BestAttempt       *quiz.AttemptResult  `json:"best_attempt,omitempty"`
}

// View builds a snapshot of the session.
func (s *Session) View() View {
	v := View{
		State:          s.state.String(),
		InstanceID:     s.instanceID,
		StudentID:      s.studentID,
		CurrentAttempt: s.current,
		MaxRetries:     s.maxRetries,
		Approved:       s.approved,
		Completed:      s.completed,
		CanRetry:       s.CanRetry(),
		Loading:        s.loading,
		Answers:        s.Answers(),
		Attempts:       s.Attempts(),
	}
	if s.cfg == nil {
		return v
	}
	cfg := *s.cfg
	v.ActivityID = cfg.ActivityID
	v.Title = cfg.Title
	v.TotalTimeMinutes = cfg.TotalTimeMinutes
	v.ApprovalThreshold = cfg.Threshold()
	v.ScoringPolicy = cfg.Policy()
	v.AttemptsRemaining = grading.AttemptsRemaining(s.current, s.maxRetries, s.approved)
	if s.state == StateInProgress {
		// the attempt in progress still counts
		v.AttemptsRemaining++
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		v.StartedAt = &t
	}
	if best, ok := s.BestAttempt(); ok {
		v.BestAttempt = &best
	}

	reveal := cfg.ShowAnswersAfterSubmission && (s.state == StateSubmitted || s.state == StateCompleted)
	v.Exercises = make([]ExerciseView, 0, len(cfg.Exercises))
	for _, ex := range cfg.Exercises {
		ev := ExerciseView{
			ID:           ex.ID,
			Question:     ex.Question,
			Options:      append([]string(nil), ex.Options...),
			NeedsNumeric: ex.RequiresNumeric(cfg),
		}
		if reveal {
			if i, ok := ex.CorrectIndex(); ok {
				ev.CorrectOption = quiz.IndexToLetter(i)
			}
			ev.CorrectAnswer = ex.CorrectAnswer
		}
		v.Exercises = append(v.Exercises, ev)
	}
	return v
}
