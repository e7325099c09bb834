package quiz

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoExercises marks a quiz that cannot be scored.
	ErrNoExercises = errors.New("quiz has no exercises")
	// ErrInvalidConfig wraps every other load-time configuration problem.
	ErrInvalidConfig = errors.New("invalid quiz config")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize fills in exercise ids the activity service leaves blank, using
// the "ex-<n>" scheme the service's own client uses.
func (c *Config) Normalize() {
	for i := range c.Exercises {
		if c.Exercises[i].ID == "" {
			c.Exercises[i].ID = "ex-" + strconv.Itoa(i+1)
		}
	}
	if c.NumberOfExercises == 0 {
		c.NumberOfExercises = len(c.Exercises)
	}
}

// Validate rejects configurations that would fail mid-session. It is meant to
// run once, when the quiz is loaded.
func (c Config) Validate() error {
	if len(c.Exercises) == 0 {
		return ErrNoExercises
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed %q", ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	seen := make(map[string]bool, len(c.Exercises))
	for _, ex := range c.Exercises {
		if seen[ex.ID] {
			return fmt.Errorf("%w: duplicate exercise id %s", ErrInvalidConfig, ex.ID)
		}
		seen[ex.ID] = true
		if _, ok := ex.CorrectIndex(); !ok {
			return fmt.Errorf("%w: exercise %s: correct option %q matches no option", ErrInvalidConfig, ex.ID, ex.CorrectOption)
		}
		if ex.NumericRequired && ex.CorrectAnswer == "" {
			return fmt.Errorf("%w: exercise %s requires a numeric answer but has no canonical answer", ErrInvalidConfig, ex.ID)
		}
	}
	return nil
}
