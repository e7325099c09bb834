package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func boolPtr(b bool) *bool { return &b }

func physicsQuiz() quiz.Config {
	return quiz.Config{
		ActivityID: "act-phys",
		Exercises: []quiz.Exercise{
			{ID: "ex-1", Question: "g?", Options: []string{"9.8 m/s^2", "12 m/s^2"}, CorrectOption: "A", CorrectAnswer: "9.8 m/s^2"},
			{ID: "ex-2", Question: "c?", Options: []string{"slow", "fast", "3e8 m/s"}, CorrectOption: "3e8 m/s", CorrectAnswer: "3e8 m/s"},
			{ID: "ex-3", Question: "unit of force?", Options: []string{"N", "J"}, CorrectOption: "a"},
			{ID: "ex-4", Question: "Planck?", Options: []string{"h", "k"}, CorrectOption: "A", CorrectAnswer: "6.626e-34 J s", NumericRequired: true},
		},
	}
}

func TestEvaluate(t *testing.T) {
	cfg := physicsQuiz()
	cfg.RelativeTolerancePct = f(2)

	tests := []struct {
		name string
		ex   int
		ans  quiz.StudentAnswer
		want bool
	}{
		{"option and numeric ok", 0, quiz.StudentAnswer{SelectedOption: "A", NumericAnswer: "9.81 m/s^2"}, true},
		{"option by lowercase letter", 0, quiz.StudentAnswer{SelectedOption: "a", NumericAnswer: "9.8 m/s^2"}, true},
		{"wrong option short-circuits", 0, quiz.StudentAnswer{SelectedOption: "B", NumericAnswer: "9.8 m/s^2"}, false},
		{"numeric outside tolerance", 0, quiz.StudentAnswer{SelectedOption: "A", NumericAnswer: "10.5 m/s^2"}, false},
		{"numeric unit mismatch", 0, quiz.StudentAnswer{SelectedOption: "A", NumericAnswer: "9.8 m/s"}, false},
		{"numeric missing", 0, quiz.StudentAnswer{SelectedOption: "A"}, false},
		{"correct option given as text", 1, quiz.StudentAnswer{SelectedOption: "C", NumericAnswer: "2.99e8 m/s"}, true},
		{"selected option given as text", 1, quiz.StudentAnswer{SelectedOption: "3e8 m/s", NumericAnswer: "3e8 m/s"}, true},
		{"option only exercise", 2, quiz.StudentAnswer{SelectedOption: "A", NumericAnswer: "garbage"}, true},
		{"unresolvable option", 2, quiz.StudentAnswer{SelectedOption: "Z"}, false},
		{"empty option", 2, quiz.StudentAnswer{}, false},
		{"numeric flag", 3, quiz.StudentAnswer{SelectedOption: "A", NumericAnswer: "6.63e-34 J s"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(cfg.Exercises[tc.ex], tc.ans, cfg))
		})
	}
}

func TestEvaluate_NoToleranceIgnoresNumeric(t *testing.T) {
	cfg := physicsQuiz()
	ans := quiz.StudentAnswer{SelectedOption: "A", NumericAnswer: "1000 furlongs"}
	assert.True(t, Evaluate(cfg.Exercises[0], ans, cfg), "option alone decides")
	// flagged exercises still require an exact value
	assert.False(t, Evaluate(cfg.Exercises[3], ans, cfg))
}

func TestRawScore(t *testing.T) {
	exs := physicsQuiz().Exercises

	all := map[string]quiz.StudentAnswer{}
	none := map[string]quiz.StudentAnswer{}
	for _, ex := range exs {
		all[ex.ID] = quiz.StudentAnswer{IsCorrect: boolPtr(true)}
		none[ex.ID] = quiz.StudentAnswer{IsCorrect: boolPtr(false)}
	}
	got, err := RawScore(all, exs)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got)

	got, _ = RawScore(none, exs)
	assert.Equal(t, 0.0, got)

	got, _ = RawScore(map[string]quiz.StudentAnswer{"ex-1": {IsCorrect: boolPtr(true)}}, exs)
	assert.Equal(t, 25.0, got)

	_, err = RawScore(all, nil)
	assert.ErrorIs(t, err, quiz.ErrNoExercises)
}

func TestApplyScoringPolicy(t *testing.T) {
	assert.InDelta(t, 35.3553, ApplyScoringPolicy(50, quiz.PolicyNonLinear), 1e-3)
	assert.Equal(t, 100.0, ApplyScoringPolicy(100, quiz.PolicyNonLinear))
	assert.Equal(t, 0.0, ApplyScoringPolicy(0, quiz.PolicyNonLinear))

	for _, x := range []float64{0, 12.5, 50, 99.9, 100} {
		assert.Equal(t, x, ApplyScoringPolicy(x, quiz.PolicyLinear))
		assert.Equal(t, x, ApplyScoringPolicy(x, ""), "empty name is linear")
		assert.Equal(t, x, ApplyScoringPolicy(x, "halved"), "unknown name is linear")
	}
}

func TestScoreAttempt_Scenario(t *testing.T) {
	cfg := physicsQuiz()
	cfg.AbsoluteTolerance = f(0.05)
	answers := map[string]quiz.StudentAnswer{
		"ex-1": {SelectedOption: "A", NumericAnswer: "9.8 m/s^2", Rationale: "r"},
		"ex-2": {SelectedOption: "C", NumericAnswer: "3e8 m/s", Rationale: "r"},
		"ex-3": {SelectedOption: "A", Rationale: "r"},
		"ex-4": {SelectedOption: "B", Rationale: "r"},
	}
	evaluated, score, err := ScoreAttempt(answers, cfg)
	require.NoError(t, err)
	assert.Equal(t, 75.0, score)
	assert.True(t, IsApproved(score, cfg.ApprovalThreshold))
	assert.False(t, CanRetry(1, 2, true), "approved students are not offered a retry")
	assert.False(t, *evaluated["ex-4"].IsCorrect)
	assert.Nil(t, answers["ex-1"].IsCorrect, "input answers must not be mutated")
}

func TestScoreAttempt_NonLinear(t *testing.T) {
	cfg := physicsQuiz()
	cfg.ScoringPolicy = quiz.PolicyNonLinear
	answers := map[string]quiz.StudentAnswer{
		"ex-3": {SelectedOption: "A", Rationale: "r"},
	}
	_, score, err := ScoreAttempt(answers, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 12.5, score, 1e-9)
}

func TestScoreAttempt_MissingAnswerIsWrong(t *testing.T) {
	cfg := physicsQuiz()
	evaluated, score, err := ScoreAttempt(map[string]quiz.StudentAnswer{}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
	assert.Len(t, evaluated, len(cfg.Exercises))
}
