package grading

import (
	"math"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ApplyScoringPolicy maps a raw 0..100 percentage to the final score.
// Non-linear is 100*(raw/100)^1.5; linear, empty and unknown names leave raw
// unchanged.
func ApplyScoringPolicy(raw float64, name string) float64 {
	switch name {
	case quiz.PolicyNonLinear:
		return 100 * math.Pow(raw/100, 1.5)
	default:
		return raw
	}
}

// RawScore is the percentage of exercises whose answer is marked correct.
// Answers without an evaluation count as wrong.
func RawScore(answers map[string]quiz.StudentAnswer, exercises []quiz.Exercise) (float64, error) {
	if len(exercises) == 0 {
		return 0, quiz.ErrNoExercises
	}
	correct := 0
	for _, ex := range exercises {
		a, ok := answers[ex.ID]
		if ok && a.IsCorrect != nil && *a.IsCorrect {
			correct++
		}
	}
	return 100 * float64(correct) / float64(len(exercises)), nil
}

// ScoreAttempt evaluates every exercise and returns the evaluated answers
// together with the policy-adjusted score. Missing answers are recorded as
// incorrect.
func ScoreAttempt(answers map[string]quiz.StudentAnswer, cfg quiz.Config) (map[string]quiz.StudentAnswer, float64, error) {
	evaluated := make(map[string]quiz.StudentAnswer, len(cfg.Exercises))
	for _, ex := range cfg.Exercises {
		a, ok := answers[ex.ID]
		if !ok {
			a = quiz.StudentAnswer{ExerciseID: ex.ID}
		}
		a.ExerciseID = ex.ID
		correct := ok && Evaluate(ex, a, cfg)
		a.IsCorrect = &correct
		evaluated[ex.ID] = a
	}
	raw, err := RawScore(evaluated, cfg.Exercises)
	if err != nil {
		return nil, 0, err
	}
	return evaluated, ApplyScoringPolicy(raw, cfg.Policy()), nil
}
