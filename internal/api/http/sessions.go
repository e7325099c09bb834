package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/journal"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

// SessionAPI exposes quiz sessions over REST.
type SessionAPI struct {
	Sessions *Registry
	Journal  journal.Store // optional
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func (a *SessionAPI) Routes(r chi.Router) {
	r.Post("/sessions", a.create)
	r.Route("/sessions/{id}", func(sr chi.Router) {
		sr.Get("/", a.get)
		sr.Delete("/", a.remove)
		sr.Put("/answers/{exerciseID}", a.putAnswer)
		sr.Post("/submit", a.submit)
		sr.Post("/retry", a.retry)
		sr.Post("/complete", a.complete)
		sr.Get("/journal", a.getJournal)
	})
	r.Get("/handoffs/pending", a.pendingHandoffs)
}

type createReq struct {
	ActivityID string `json:"activity_id"`
	StudentID  string `json:"student_id"`
}

type sessionResp struct {
	ID string `json:"id"`
	session.View
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

// POST /sessions {activity_id, student_id}
func (a *SessionAPI) create(w http.ResponseWriter, r *http.Request) {
	var req createReq
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	req.ActivityID = strings.TrimSpace(req.ActivityID)
	if req.ActivityID == "" {
		writeJSON(w, http.StatusBadRequest, errResp{Error: "activity_id required"})
		return
	}
	id, v, err := a.Sessions.Create(r.Context(), req.ActivityID, strings.TrimSpace(req.StudentID))
	if err != nil {
		a.logger().Warn("session start failed", zap.String("activity_id", req.ActivityID), zap.Error(err))
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResp{ID: id, View: v})
}

func (a *SessionAPI) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := a.Sessions.View(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{ID: id, View: v})
}

func (a *SessionAPI) remove(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Delete(chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type answerReq struct {
	SelectedOption string `json:"selected_option"`
	NumericAnswer  string `json:"numeric_answer"`
	Rationale      string `json:"rationale"`
}

// PUT /sessions/{id}/answers/{exerciseID}
func (a *SessionAPI) putAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerReq
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ans := quiz.StudentAnswer{
		ExerciseID:     chi.URLParam(r, "exerciseID"),
		SelectedOption: req.SelectedOption,
		NumericAnswer:  req.NumericAnswer,
		Rationale:      req.Rationale,
	}
	a.transition(w, r, func(s *session.Session) error { return s.SetAnswer(ans) })
}

func (a *SessionAPI) submit(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(s *session.Session) error {
		res, err := s.SubmitAttempt(r.Context())
		if err == nil && a.Metrics != nil {
			cfg, _ := s.Config()
			a.Metrics.AttemptScores.WithLabelValues(cfg.ActivityID).Observe(res.Result)
		}
		return err
	})
}

func (a *SessionAPI) retry(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(s *session.Session) error { return s.Retry() })
}

func (a *SessionAPI) complete(w http.ResponseWriter, r *http.Request) {
	a.transition(w, r, func(s *session.Session) error {
		if s.Completed() {
			return nil
		}
		err := s.CompleteQuiz(r.Context())
		if a.Metrics != nil && (err == nil || session.IsHandoffError(err)) {
			outcome := "ok"
			if err != nil {
				outcome = "failed"
			}
			a.Metrics.Handoffs.WithLabelValues(outcome).Inc()
		}
		return err
	})
}

func (a *SessionAPI) transition(w http.ResponseWriter, r *http.Request, fn func(*session.Session) error) {
	id := chi.URLParam(r, "id")
	v, err := a.Sessions.Do(id, fn)
	if err != nil {
		if !session.IsValidation(err) && !errors.Is(err, session.ErrBusy) && !errors.Is(err, ErrSessionNotFound) {
			a.logger().Warn("session transition failed", zap.String("session", id), zap.Error(err))
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResp{ID: id, View: v})
}

type journalResp struct {
	Attempts []quiz.AttemptResult `json:"attempts"`
	Handoff  *handoffResp         `json:"handoff,omitempty"`
}

type handoffResp struct {
	InstanceID string `json:"instance_id"`
	StudentID  string `json:"student_id"`
	Status     string `json:"status"`
	Retries    int    `json:"retries"`
	LastError  string `json:"last_error,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

func toHandoffResp(h journal.Handoff) handoffResp {
	return handoffResp{
		InstanceID: h.InstanceID,
		StudentID:  h.StudentID,
		Status:     h.Status,
		Retries:    h.Retries,
		LastError:  h.LastError,
		UpdatedAt:  h.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// GET /sessions/{id}/journal returns what the local journal holds for the session.
func (a *SessionAPI) getJournal(w http.ResponseWriter, r *http.Request) {
	if a.Journal == nil {
		writeJSON(w, http.StatusNotFound, errResp{Error: "journal disabled"})
		return
	}
	v, err := a.Sessions.View(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	resp, err := a.journalFor(r.Context(), v.InstanceID, v.StudentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResp{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *SessionAPI) journalFor(ctx context.Context, instanceID, studentID string) (journalResp, error) {
	entries, err := a.Journal.Attempts(ctx, instanceID, studentID)
	if err != nil {
		return journalResp{}, err
	}
	resp := journalResp{Attempts: make([]quiz.AttemptResult, 0, len(entries))}
	for _, e := range entries {
		resp.Attempts = append(resp.Attempts, e.Attempt)
	}
	h, err := a.Journal.Handoff(ctx, instanceID, studentID)
	switch {
	case err == nil:
		hr := toHandoffResp(h)
		resp.Handoff = &hr
	case !errors.Is(err, journal.ErrNotFound):
		return journalResp{}, err
	}
	return resp, nil
}

// GET /handoffs/pending lists sessions whose results were not accepted yet.
func (a *SessionAPI) pendingHandoffs(w http.ResponseWriter, r *http.Request) {
	if a.Journal == nil {
		writeJSON(w, http.StatusOK, []handoffResp{})
		return
	}
	list, err := a.Journal.PendingHandoffs(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResp{Error: err.Error()})
		return
	}
	out := make([]handoffResp, 0, len(list))
	for _, h := range list {
		out = append(out, toHandoffResp(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *SessionAPI) logger() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
