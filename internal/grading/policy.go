package grading

import "github.com/mind-engage/mindengage-quiz/internal/quiz"

// IsApproved compares a final score with the threshold (default 50).
func IsApproved(score float64, threshold *float64) bool {
	t := quiz.DefaultApprovalThreshold
	if threshold != nil {
		t = *threshold
	}
	return score >= t
}

// CanRetry reports whether another attempt may start. Attempts are 1-based,
// so a student gets at most maxRetries+1 of them; approval ends the quiz.
func CanRetry(currentAttempt, maxRetries int, approved bool) bool {
	if approved {
		return false
	}
	return currentAttempt < maxRetries+1
}

// AttemptsRemaining is how many more attempts CanRetry would allow.
func AttemptsRemaining(currentAttempt, maxRetries int, approved bool) int {
	if approved {
		return 0
	}
	n := maxRetries + 1 - currentAttempt
	if n < 0 {
		return 0
	}
	return n
}

// BestAttempt returns the highest-scoring attempt; the earliest one wins a
// tie. It is for display only and never gates approval.
func BestAttempt(attempts []quiz.AttemptResult) (quiz.AttemptResult, bool) {
	if len(attempts) == 0 {
		return quiz.AttemptResult{}, false
	}
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.Result > best.Result {
			best = a
		}
	}
	return best, true
}
