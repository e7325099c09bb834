package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/analytics"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// ActivityDirectory is the read side of the activity service used by the
// catalog endpoints. *activity.Client implements it.
type ActivityDirectory interface {
	ListActivities(ctx context.Context) ([]quiz.ActivitySummary, error)
	ListInstances(ctx context.Context, activityID string) ([]quiz.Instance, error)
	GetInstance(ctx context.Context, instanceID string) (quiz.Instance, error)
	GetConfigParams(ctx context.Context) (json.RawMessage, error)
	UpdateConfigParams(ctx context.Context, params json.RawMessage) (json.RawMessage, error)
	ListSubmissions(ctx context.Context, instanceID string) (json.RawMessage, error)
	GetSubmission(ctx context.Context, instanceID, studentID string) (json.RawMessage, error)
}

type AnalyticsReader interface {
	Contract(ctx context.Context) (analytics.Contract, error)
	Metrics(ctx context.Context, reqs []analytics.MetricRequest) ([]analytics.MetricResult, error)
}

// CatalogAPI passes activity and analytics lookups through to the services.
type CatalogAPI struct {
	Activities ActivityDirectory
	Analytics  AnalyticsReader // optional
}

func (a *CatalogAPI) Routes(r chi.Router) {
	r.Get("/activities", a.listActivities)
	r.Get("/activities/{activityID}/instances", a.listInstances)
	r.Get("/instances/{instanceID}", a.getInstance)
	r.Get("/instances/{instanceID}/submissions", a.listSubmissions)
	r.Get("/instances/{instanceID}/submissions/{studentID}", a.getSubmission)
	r.Get("/config/params", a.getConfigParams)
	r.Put("/config/params", a.putConfigParams)

	r.Get("/analytics/contract", a.contract)
	r.Post("/analytics/metrics", a.metrics)
}

func (a *CatalogAPI) listActivities(w http.ResponseWriter, r *http.Request) {
	list, err := a.Activities.ListActivities(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []quiz.ActivitySummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": list})
}

func (a *CatalogAPI) listInstances(w http.ResponseWriter, r *http.Request) {
	list, err := a.Activities.ListInstances(r.Context(), chi.URLParam(r, "activityID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []quiz.Instance{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"instances": list})
}

func (a *CatalogAPI) getInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := a.Activities.GetInstance(r.Context(), chi.URLParam(r, "instanceID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (a *CatalogAPI) listSubmissions(w http.ResponseWriter, r *http.Request) {
	raw, err := a.Activities.ListSubmissions(r.Context(), chi.URLParam(r, "instanceID"))
	writeRaw(w, raw, err)
}

func (a *CatalogAPI) getSubmission(w http.ResponseWriter, r *http.Request) {
	raw, err := a.Activities.GetSubmission(r.Context(), chi.URLParam(r, "instanceID"), chi.URLParam(r, "studentID"))
	writeRaw(w, raw, err)
}

func (a *CatalogAPI) getConfigParams(w http.ResponseWriter, r *http.Request) {
	raw, err := a.Activities.GetConfigParams(r.Context())
	writeRaw(w, raw, err)
}

func (a *CatalogAPI) putConfigParams(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		writeErr(w, errBadBody)
		return
	}
	raw, err := a.Activities.UpdateConfigParams(r.Context(), body)
	writeRaw(w, raw, err)
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (a *CatalogAPI) contract(w http.ResponseWriter, r *http.Request) {
	if a.Analytics == nil {
		writeJSON(w, http.StatusServiceUnavailable, errResp{Error: "analytics not configured"})
		return
	}
	c, err := a.Analytics.Contract(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type metricsReq struct {
	Metrics []analytics.MetricRequest `json:"metrics"`
	// Shorthand: metric ids applied to one activity or student.
	MetricIDs  []string `json:"metric_ids"`
	ActivityID string   `json:"activity_id"`
	StudentID  string   `json:"student_id"`
}

// POST /analytics/metrics
func (a *CatalogAPI) metrics(w http.ResponseWriter, r *http.Request) {
	if a.Analytics == nil {
		writeJSON(w, http.StatusServiceUnavailable, errResp{Error: "analytics not configured"})
		return
	}
	var req metricsReq
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	reqs := req.Metrics
	for _, id := range req.MetricIDs {
		if id = strings.TrimSpace(id); id != "" {
			reqs = append(reqs, analytics.MetricRequest{MetricID: id, ActivityID: req.ActivityID, StudentID: req.StudentID})
		}
	}
	res, err := a.Analytics.Metrics(r.Context(), reqs)
	if err != nil {
		writeErr(w, err)
		return
	}
	if res == nil {
		res = []analytics.MetricResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": res})
}
