package quiz

import (
	"strings"
	"time"
)

// Scoring policies understood by the grading package.
const (
	PolicyLinear    = "linear"
	PolicyNonLinear = "non-linear"
)

// DefaultApprovalThreshold is used when a quiz does not declare one.
const DefaultApprovalThreshold = 50.0

// Exercise is a single multiple-choice question. CorrectOption holds either an
// option letter ("A", "b") or the full option text.
type Exercise struct {
	ID              string   `json:"id" validate:"required"`
	Question        string   `json:"question" validate:"required"`
	Options         []string `json:"options" validate:"min=2,dive,required"`
	CorrectOption   string   `json:"correct_options" validate:"required"`
	CorrectAnswer   string   `json:"correct_answer,omitempty"` // canonical number+unit, may be empty
	NumericRequired bool     `json:"numeric_required,omitempty"`
}

// Config is the quiz definition served by the activity service.
type Config struct {
	ActivityID                 string     `json:"activity_id" validate:"required"`
	Title                      string     `json:"title"`
	Grade                      int        `json:"grade"`
	Modules                    string     `json:"modules"`
	NumberOfExercises          int        `json:"number_of_exercises" validate:"gte=0"`
	TotalTimeMinutes           int        `json:"total_time_minutes" validate:"gte=0"` // informational only
	NumberOfRetries            int        `json:"number_of_retries" validate:"gte=0"`
	RelativeTolerancePct       *float64   `json:"relative_tolerance_pct,omitempty" validate:"omitempty,gte=0"`
	AbsoluteTolerance          *float64   `json:"absolute_tolerance,omitempty" validate:"omitempty,gte=0"`
	ShowAnswersAfterSubmission bool       `json:"show_answers_after_submission,omitempty"`
	ScoringPolicy              string     `json:"scoring_policy,omitempty" validate:"omitempty,oneof=linear non-linear"`
	ApprovalThreshold          *float64   `json:"approval_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	Exercises                  []Exercise `json:"exercises" validate:"dive"`
}

// HasTolerance reports whether the quiz configures any numeric tolerance.
func (c Config) HasTolerance() bool {
	return c.RelativeTolerancePct != nil || c.AbsoluteTolerance != nil
}

// Threshold returns the approval threshold, falling back to the default.
func (c Config) Threshold() float64 {
	if c.ApprovalThreshold == nil {
		return DefaultApprovalThreshold
	}
	return *c.ApprovalThreshold
}

// Policy returns the scoring policy name, falling back to linear.
func (c Config) Policy() string {
	if c.ScoringPolicy == "" {
		return PolicyLinear
	}
	return c.ScoringPolicy
}

// Exercise looks up an exercise by id.
func (c Config) Exercise(id string) (Exercise, bool) {
	for _, ex := range c.Exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return Exercise{}, false
}

// RequiresNumeric reports whether a correct option alone is not enough: the
// exercise is flagged numeric, or it carries a canonical answer and the quiz
// configures a tolerance.
func (e Exercise) RequiresNumeric(c Config) bool {
	if e.NumericRequired {
		return true
	}
	return strings.TrimSpace(e.CorrectAnswer) != "" && c.HasTolerance()
}

// StudentAnswer is the live answer to one exercise. IsCorrect stays nil until
// the attempt is evaluated.
type StudentAnswer struct {
	ExerciseID     string `json:"exercise_id"`
	SelectedOption string `json:"selected_option"`
	NumericAnswer  string `json:"numeric_answer,omitempty"`
	Rationale      string `json:"rationale"`
	IsCorrect      *bool  `json:"is_correct,omitempty"`
}

// Answered is true when both the option and the rationale are filled in.
func (a StudentAnswer) Answered() bool {
	return strings.TrimSpace(a.SelectedOption) != "" && strings.TrimSpace(a.Rationale) != ""
}

// AttemptResult is a submitted, scored attempt. It is never mutated after creation.
type AttemptResult struct {
	AttemptIndex     int                      `json:"attempt_index"`
	Answers          map[string]StudentAnswer `json:"answers"`
	Result           float64                  `json:"result"`
	SubmittedAt      time.Time                `json:"submitted_at"`
	TimeSpentSeconds *int                     `json:"time_spent_seconds,omitempty"`
}

// Clone returns a deep copy so callers cannot reach into session state.
func (a AttemptResult) Clone() AttemptResult {
	out := a
	out.Answers = make(map[string]StudentAnswer, len(a.Answers))
	for k, v := range a.Answers {
		if v.IsCorrect != nil {
			ok := *v.IsCorrect
			v.IsCorrect = &ok
		}
		out.Answers[k] = v
	}
	if a.TimeSpentSeconds != nil {
		secs := *a.TimeSpentSeconds
		out.TimeSpentSeconds = &secs
	}
	return out
}
