package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/activity"
	"github.com/mind-engage/mindengage-quiz/internal/analytics"
	"github.com/mind-engage/mindengage-quiz/internal/journal"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

var errBadBody = errors.New("invalid JSON body")

// statusFor maps domain errors to HTTP statuses. Anything unrecognized came
// from an upstream service.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, session.ErrUnknownExercise),
		errors.Is(err, analytics.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, activity.ErrNotFound),
		errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrInvalidState),
		errors.Is(err, session.ErrRetryNotAllowed),
		errors.Is(err, session.ErrNoAttempts):
		return http.StatusConflict
	case errors.Is(err, session.ErrIncompleteAnswers),
		errors.Is(err, quiz.ErrNoExercises),
		errors.Is(err, quiz.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResp struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeErr(w http.ResponseWriter, err error) {
	resp := errResp{Error: err.Error()}
	var inc *session.IncompleteError
	if errors.As(err, &inc) {
		resp.Missing = inc.Missing
	}
	writeJSON(w, statusFor(err), resp)
}
