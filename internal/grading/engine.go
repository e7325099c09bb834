package grading

import "github.com/mind-engage/mindengage-quiz/internal/quiz"

// ToleranceOf extracts the comparator settings from a quiz.
func ToleranceOf(cfg quiz.Config) Tolerance {
	return Tolerance{RelativePct: cfg.RelativeTolerancePct, Absolute: cfg.AbsoluteTolerance}
}

// Evaluate decides whether one answer is correct. The selected option must
// resolve to the exercise's correct option; when the exercise also expects a
// numeric answer, that answer must pass CompareNumeric against the canonical
// one. There is no partial credit and no error path: anything unresolvable is
// simply wrong.
func Evaluate(ex quiz.Exercise, ans quiz.StudentAnswer, cfg quiz.Config) bool {
	want, ok := ex.CorrectIndex()
	if !ok {
		return false
	}
	got, ok := ex.OptionIndex(ans.SelectedOption)
	if !ok || got != want {
		return false
	}
	if !ex.RequiresNumeric(cfg) {
		return true
	}
	return CompareNumeric(ans.NumericAnswer, ex.CorrectAnswer, ToleranceOf(cfg))
}
