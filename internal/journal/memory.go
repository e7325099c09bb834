package journal

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type sessionKey struct{ instance, student string }

// Memory is a process-local journal, used when no database is configured.
type Memory struct {
	mu       sync.Mutex
	now      func() time.Time
	attempts map[sessionKey][]Entry
	handoffs map[sessionKey]Handoff
}

func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		attempts: map[sessionKey][]Entry{},
		handoffs: map[sessionKey]Handoff{},
	}
}

func (m *Memory) RecordAttempt(_ context.Context, instanceID, studentID string, a quiz.AttemptResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sessionKey{instanceID, studentID}
	list := m.attempts[k]
	for i := range list {
		if list[i].Attempt.AttemptIndex == a.AttemptIndex {
			list[i].Attempt = a.Clone()
			return nil
		}
	}
	list = append(list, Entry{ID: uuid.NewString(), InstanceID: instanceID, StudentID: studentID, Attempt: a.Clone()})
	sort.Slice(list, func(i, j int) bool { return list[i].Attempt.AttemptIndex < list[j].Attempt.AttemptIndex })
	m.attempts[k] = list
	return nil
}

func (m *Memory) Attempts(_ context.Context, instanceID, studentID string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.attempts[sessionKey{instanceID, studentID}]
	out := make([]Entry, 0, len(list))
	for _, e := range list {
		e.Attempt = e.Attempt.Clone()
		out = append(out, e)
	}
	return out, nil
}

func (m *Memory) MarkHandoffPending(_ context.Context, instanceID, studentID string) error {
	m.update(instanceID, studentID, func(h *Handoff) { h.Status = StatusPending })
	return nil
}

func (m *Memory) MarkHandoffOK(_ context.Context, instanceID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sessionKey{instanceID, studentID}
	h, ok := m.handoffs[k]
	if !ok {
		return nil
	}
	h.Status, h.LastError, h.UpdatedAt = StatusOK, "", m.now()
	m.handoffs[k] = h
	return nil
}

func (m *Memory) MarkHandoffFailed(_ context.Context, instanceID, studentID, lastErr string) error {
	m.update(instanceID, studentID, func(h *Handoff) {
		h.Status, h.LastError = StatusFailed, lastErr
		h.Retries++
	})
	return nil
}

func (m *Memory) Handoff(_ context.Context, instanceID, studentID string) (Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handoffs[sessionKey{instanceID, studentID}]
	if !ok {
		return Handoff{}, ErrNotFound
	}
	return h, nil
}

func (m *Memory) PendingHandoffs(context.Context) ([]Handoff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Handoff
	for _, h := range m.handoffs {
		if h.Status != StatusOK {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (m *Memory) update(instanceID, studentID string, fn func(*Handoff)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sessionKey{instanceID, studentID}
	h, ok := m.handoffs[k]
	if !ok {
		h = Handoff{InstanceID: instanceID, StudentID: studentID}
	}
	fn(&h)
	h.UpdatedAt = m.now()
	m.handoffs[k] = h
}
