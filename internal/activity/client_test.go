package activity_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quiz/internal/activity"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingObserver) ObserveUpstream(service, op string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, service+":"+op+":"+http.StatusText(status))
}

func newServer(t *testing.T) (*httptest.Server, *[]byte) {
	t.Helper()
	var lastBody []byte
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/activity/config/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "act-1" {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"activity_id":"act-1","title":"Forces","number_of_retries":2,
			"relative_tolerance_pct":5,"scoring_policy":"non-linear",
			"exercises":[{"question":"F=ma?","options":["yes","no"],"correct_options":"A","correct_answer":"10 N"}]
		}`)
	})
	mux.HandleFunc("GET /api/activity/config", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"activities":[{"activity_id":"act-1","title":"Forces","grade":9}]}`)
	})
	mux.HandleFunc("GET /api/activity/deploy/activity/{id}", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `[{"instance_id":"i-1"},{"instance_id":"i-2"}]`)
	})
	mux.HandleFunc("POST /api/activity/deploy", func(w http.ResponseWriter, r *http.Request) {
		lastBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"instance_id":"i-9","deploy_url":"http://x/i-9"}`)
	})
	mux.HandleFunc("POST /api/activity/submissions", func(w http.ResponseWriter, r *http.Request) {
		lastBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("PUT /api/activity/config/params", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastBody
}

func TestFetchQuiz(t *testing.T) {
	srv, _ := newServer(t)
	obs := &recordingObserver{}
	c := activity.New(activity.Config{BaseURL: srv.URL + "/api/activity/", Observer: obs})

	cfg, err := c.FetchQuiz(context.Background(), "act-1")
	require.NoError(t, err)
	assert.Equal(t, "Forces", cfg.Title)
	assert.Equal(t, quiz.PolicyNonLinear, cfg.ScoringPolicy)
	require.NotNil(t, cfg.RelativeTolerancePct)
	assert.Equal(t, 5.0, *cfg.RelativeTolerancePct)
	require.Len(t, cfg.Exercises, 1)
	assert.Equal(t, "A", cfg.Exercises[0].CorrectOption)

	_, err = c.FetchQuiz(context.Background(), "missing")
	assert.ErrorIs(t, err, activity.ErrNotFound)

	assert.Equal(t, []string{"activity:fetch_quiz:OK", "activity:fetch_quiz:Not Found"}, obs.calls)
}

func TestListings(t *testing.T) {
	srv, _ := newServer(t)
	c := activity.New(activity.Config{BaseURL: srv.URL + "/api/activity"})
	ctx := context.Background()

	acts, err := c.ListActivities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []quiz.ActivitySummary{{ActivityID: "act-1", Title: "Forces", Grade: 9}}, acts)

	insts, err := c.ListInstances(ctx, "act-1")
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, "i-2", insts[1].InstanceID)
}

func TestCreateInstance(t *testing.T) {
	srv, body := newServer(t)
	c := activity.New(activity.Config{BaseURL: srv.URL + "/api/activity"})

	inst, err := c.CreateInstance(context.Background(), "act-1", map[string]any{"student_id": "s1"})
	require.NoError(t, err)
	assert.Equal(t, "i-9", inst.InstanceID)
	assert.Equal(t, "act-1", inst.ActivityID)
	assert.JSONEq(t, `{"activity_id":"act-1","session_params":{"student_id":"s1"}}`, string(*body))
}

func TestSubmitResults(t *testing.T) {
	srv, body := newServer(t)
	c := activity.New(activity.Config{BaseURL: srv.URL + "/api/activity"})

	res := quiz.NewFinalResult("i-9", "s1", []quiz.AttemptResult{{
		AttemptIndex: 1,
		Answers:      map[string]quiz.StudentAnswer{"ex-1": {SelectedOption: "A", Rationale: "Newton"}},
		Result:       100,
		SubmittedAt:  time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	require.NoError(t, c.SubmitResults(context.Background(), res))
	assert.JSONEq(t, `{
		"instance_id":"i-9","student_id":"s1",
		"attempts":[{"attemptIndex":1,"answers":{"ex-1":{"selectedOption":"A","rationale":"Newton"}},
		             "result":100,"submittedAt":"2025-01-02T03:04:05Z"}]
	}`, string(*body))
}

func TestStatusError(t *testing.T) {
	srv, _ := newServer(t)
	c := activity.New(activity.Config{BaseURL: srv.URL + "/api/activity"})

	_, err := c.UpdateConfigParams(context.Background(), json.RawMessage(`{"a":1}`))
	var se *activity.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Status)
	assert.Equal(t, "activity update_config_params", se.Op)
	assert.Contains(t, se.Body, "upstream exploded")

	_, err = c.UpdateConfigParams(context.Background(), json.RawMessage(`{nope`))
	assert.Error(t, err)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv, _ := newServer(t)
	c := activity.New(activity.Config{BaseURL: srv.URL + "/api/activity", RatePerSecond: 0.001, Burst: 1})

	_, err := c.ListActivities(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.ListActivities(ctx)
	assert.Error(t, err)
}

func TestClientCredentials(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("GET /api/activity/config", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `[]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := activity.New(activity.Config{
		BaseURL:      srv.URL + "/api/activity",
		TokenURL:     srv.URL + "/token",
		ClientID:     "quizd",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	})
	_, err := c.ListActivities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}
