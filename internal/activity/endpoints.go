package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// FetchQuiz loads a quiz definition. Unknown activities return ErrNotFound.
func (c *Client) FetchQuiz(ctx context.Context, activityID string) (quiz.Config, error) {
	var cfg quiz.Config
	if err := c.do(ctx, "fetch_quiz", http.MethodGet, "/config/"+esc(activityID), nil, &cfg); err != nil {
		return quiz.Config{}, err
	}
	if cfg.ActivityID == "" {
		cfg.ActivityID = activityID
	}
	return cfg, nil
}

// ListActivities returns the activities available for selection.
func (c *Client) ListActivities(ctx context.Context) ([]quiz.ActivitySummary, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list_activities", http.MethodGet, "/config", nil, &raw); err != nil {
		return nil, err
	}
	var out []quiz.ActivitySummary
	if err := decodeList(raw, "activities", &out); err != nil {
		return nil, fmt.Errorf("list_activities: %w", err)
	}
	return out, nil
}

// GetConfigParams returns the service's activity parameter schema as-is.
func (c *Client) GetConfigParams(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "get_config_params", http.MethodGet, "/config/params", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Client) UpdateConfigParams(ctx context.Context, params json.RawMessage) (json.RawMessage, error) {
	if !json.Valid(params) {
		return nil, errors.New("update_config_params: body is not valid JSON")
	}
	var raw json.RawMessage
	if err := c.do(ctx, "update_config_params", http.MethodPut, "/config/params", params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

type deployRequest struct {
	ActivityID    string         `json:"activity_id"`
	SessionParams map[string]any `json:"session_params,omitempty"`
}

// CreateInstance deploys an activity for one session.
func (c *Client) CreateInstance(ctx context.Context, activityID string, params map[string]any) (quiz.Instance, error) {
	var inst quiz.Instance
	err := c.do(ctx, "create_instance", http.MethodPost, "/deploy",
		deployRequest{ActivityID: activityID, SessionParams: params}, &inst)
	if err != nil {
		return quiz.Instance{}, err
	}
	if inst.ActivityID == "" {
		inst.ActivityID = activityID
	}
	return inst, nil
}

func (c *Client) GetInstance(ctx context.Context, instanceID string) (quiz.Instance, error) {
	var inst quiz.Instance
	if err := c.do(ctx, "get_instance", http.MethodGet, "/deploy/"+esc(instanceID), nil, &inst); err != nil {
		return quiz.Instance{}, err
	}
	return inst, nil
}

func (c *Client) ListInstances(ctx context.Context, activityID string) ([]quiz.Instance, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list_instances", http.MethodGet, "/deploy/activity/"+esc(activityID), nil, &raw); err != nil {
		return nil, err
	}
	var out []quiz.Instance
	if err := decodeList(raw, "instances", &out); err != nil {
		return nil, fmt.Errorf("list_instances: %w", err)
	}
	return out, nil
}

// SubmitResults posts the final attempts of a session.
func (c *Client) SubmitResults(ctx context.Context, result quiz.FinalResult) error {
	return c.do(ctx, "submit_results", http.MethodPost, "/submissions", result, nil)
}

// ListSubmissions returns the stored submissions of an instance as-is.
func (c *Client) ListSubmissions(ctx context.Context, instanceID string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, "list_submissions", http.MethodGet, "/submissions/instance/"+esc(instanceID), nil, &raw)
	return raw, err
}

func (c *Client) GetSubmission(ctx context.Context, instanceID, studentID string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, "get_submission", http.MethodGet,
		"/submissions/instance/"+esc(instanceID)+"/student/"+esc(studentID), nil, &raw)
	return raw, err
}

// decodeList accepts either a bare JSON array or an object wrapping the
// array under key.
func decodeList(raw json.RawMessage, key string, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	list, ok := wrapped[key]
	if !ok {
		return fmt.Errorf("response has no %q field", key)
	}
	return json.Unmarshal(list, out)
}
