package quiz

import (
	"sort"
	"time"
)

// AnswerPayload is the per-exercise shape the submissions endpoint stores.
type AnswerPayload struct {
	SelectedOption string `json:"selectedOption"`
	Rationale      string `json:"rationale"`
}

// AttemptPayload groups one attempt for the submissions endpoint.
type AttemptPayload struct {
	AttemptIndex     int                      `json:"attemptIndex"`
	Answers          map[string]AnswerPayload `json:"answers"`
	Result           float64                  `json:"result"`
	SubmittedAt      string                   `json:"submittedAt"`
	TimeSpentSeconds *int                     `json:"timeSpentSeconds,omitempty"`
}

// FinalResult is the body handed to the result sink when a quiz is completed.
type FinalResult struct {
	InstanceID string           `json:"instance_id"`
	StudentID  string           `json:"student_id"`
	Attempts   []AttemptPayload `json:"attempts"`
}

// NewFinalResult serializes attempts into the submission wire format.
func NewFinalResult(instanceID, studentID string, attempts []AttemptResult) FinalResult {
	out := FinalResult{
		InstanceID: instanceID,
		StudentID:  studentID,
		Attempts:   make([]AttemptPayload, 0, len(attempts)),
	}
	for _, a := range attempts {
		p := AttemptPayload{
			AttemptIndex:     a.AttemptIndex,
			Answers:          make(map[string]AnswerPayload, len(a.Answers)),
			Result:           a.Result,
			SubmittedAt:      a.SubmittedAt.UTC().Format(time.RFC3339),
			TimeSpentSeconds: a.TimeSpentSeconds,
		}
		for id, ans := range a.Answers {
			p.Answers[id] = AnswerPayload{SelectedOption: ans.SelectedOption, Rationale: ans.Rationale}
		}
		out.Attempts = append(out.Attempts, p)
	}
	sort.SliceStable(out.Attempts, func(i, j int) bool {
		return out.Attempts[i].AttemptIndex < out.Attempts[j].AttemptIndex
	})
	return out
}

// ActivitySummary is one row of the activity listing.
type ActivitySummary struct {
	ActivityID string `json:"activity_id"`
	Title      string `json:"title"`
	Grade      int    `json:"grade"`
}

// Instance is a deployed occurrence of an activity.
type Instance struct {
	InstanceID    string         `json:"instance_id"`
	ActivityID    string         `json:"activity_id,omitempty"`
	DeployURL     string         `json:"deploy_url,omitempty"`
	CreatedAt     string         `json:"created_at,omitempty"`
	ExpiresAt     string         `json:"expires_at,omitempty"`
	SessionParams map[string]any `json:"session_params,omitempty"`
}
