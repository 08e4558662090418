package usecase

import (
	"context"
	"errors"
	"sync"

	"DealScreener/internal/domain"
	"DealScreener/internal/ports"
)

// fakeGenerator scripts the text-generation capability. failChunks holds
// 0-based chunk call numbers whose Summarize should fail.
type fakeGenerator struct {
	mu sync.Mutex

	summarizeCalls int
	failChunks     map[int]bool
	summaryText    string

	structureCalls   int
	structureErr     error
	structurePayload string
	lastPrompt       string
}

func (f *fakeGenerator) Summarize(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.summarizeCalls
	f.summarizeCalls++
	if f.failChunks[call] {
		return "", errors.New("capability timeout")
	}
	if f.summaryText != "" {
		return f.summaryText, nil
	}
	return "summary of section", nil
}

func (f *fakeGenerator) Structure(_ context.Context, prompt string, _ []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.structureCalls++
	f.lastPrompt = prompt
	if f.structureErr != nil {
		return nil, f.structureErr
	}
	if f.structurePayload == "" {
		return []byte(`{"title":"Solid deal","score":74,"sentiment":"POSITIVE","explanation":"Healthy margins."}`), nil
	}
	return []byte(f.structurePayload), nil
}

type fakeRepo struct {
	mu      sync.Mutex
	err     error
	records []domain.ProcessingRecord
}

func (f *fakeRepo) Create(_ context.Context, rec domain.ProcessingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakePublisher struct {
	mu          sync.Mutex
	notifyErr   error
	notes       []domain.Notification
	jobStatuses []domain.JobStatus
}

func (f *fakePublisher) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakePublisher) PublishJobStatus(_ context.Context, _ string, status domain.JobStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobStatuses = append(f.jobStatuses, status)
	return nil
}

func (f *fakePublisher) notifications() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Notification(nil), f.notes...)
}

type fakeSink struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeSink) Push(_ context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

// fakeQueue replays scripted payloads, then reports empty forever.
type fakeQueue struct {
	mu       sync.Mutex
	payloads [][]byte
	pops     int
	pings    int
	pingErrs int // fail this many pings before succeeding
}

func (f *fakeQueue) Push(_ context.Context, msg domain.QueueMessage) error { return nil }

func (f *fakeQueue) Pop(_ context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pops++
	if len(f.payloads) == 0 {
		return nil, ports.ErrEmptyQueue
	}
	payload := f.payloads[0]
	f.payloads = f.payloads[1:]
	return payload, nil
}

func (f *fakeQueue) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	if f.pingErrs > 0 {
		f.pingErrs--
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeQueue) Close() error { return nil }

func (f *fakeQueue) popCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pops
}

type fakeMarkers struct {
	mu       sync.Mutex
	acquires int
	dup      bool
	err      error
}

func (f *fakeMarkers) Acquire(_ context.Context, _, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.err != nil {
		return false, f.err
	}
	return !f.dup, nil
}

func (f *fakeMarkers) acquireCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquires
}
