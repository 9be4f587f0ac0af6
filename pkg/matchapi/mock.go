package matchapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"discovery-client/internal/entity"
)

const (
	OpFetchBatch  = "fetch-batch"
	OpLike        = "like"
	OpLikeMessage = "like-with-message"
	OpHide        = "hide"
	OpOwnProfile  = "own-profile"
)

// Call is one recorded request against MockAPI.
type Call struct {
	Op          string
	CandidateID string
	Message     string
	Coordinates *entity.Coordinates
	Params      entity.SearchParameters
}

// MockAPI is an in-memory matching service for demo mode and tests. Batches
// are pages of the pool minus everything already liked or hidden.
type MockAPI struct {
	mu           sync.Mutex
	pool         []entity.Candidate
	pageSize     int
	decided      map[string]bool
	profile      entity.OwnProfile
	incompatible bool
	batchErr     error
	decisionErr  error
	profileErr   error
	latency      time.Duration
	decisionGate chan struct{}
	calls        []Call
}

func NewMockAPI(pool []entity.Candidate, pageSize int) *MockAPI {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &MockAPI{
		pool:     pool,
		pageSize: pageSize,
		decided:  make(map[string]bool),
		profile: entity.OwnProfile{
			ID:       "me",
			Complete: true,
			SearchParameters: entity.SearchParameters{
				Distance: 50,
				SortBy:   entity.SortByDistance,
			},
		},
	}
}

func (m *MockAPI) SetProfile(p entity.OwnProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
}

func (m *MockAPI) SetIncompatible(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incompatible = v
}

func (m *MockAPI) SetBatchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

func (m *MockAPI) SetDecisionError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisionErr = err
}

func (m *MockAPI) SetProfileError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profileErr = err
}

func (m *MockAPI) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// HoldDecisions makes like/hide calls block until ReleaseDecisions.
func (m *MockAPI) HoldDecisions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decisionGate == nil {
		m.decisionGate = make(chan struct{})
	}
}

func (m *MockAPI) ReleaseDecisions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decisionGate != nil {
		close(m.decisionGate)
		m.decisionGate = nil
	}
}

// Calls returns a copy of every recorded call in arrival order.
func (m *MockAPI) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CountCalls counts calls of op, optionally for one candidate.
func (m *MockAPI) CountCalls(op, candidateID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op && (candidateID == "" || c.CandidateID == candidateID) {
			n++
		}
	}
	return n
}

func (m *MockAPI) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockAPI) FetchCandidateBatch(ctx context.Context, params entity.SearchParameters, coords *entity.Coordinates) (*entity.Batch, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: OpFetchBatch, Coordinates: coords, Params: params})
	latency := m.latency
	m.mu.Unlock()

	if err := m.wait(ctx, latency); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.batchErr != nil {
		return nil, m.batchErr
	}
	if m.incompatible {
		return &entity.Batch{Incompatible: true}, nil
	}

	page := make([]entity.Candidate, 0, m.pageSize)
	for _, c := range m.pool {
		if len(page) == m.pageSize {
			break
		}
		if m.decided[c.ID] {
			continue
		}
		page = append(page, c)
	}
	return &entity.Batch{Candidates: page}, nil
}

func (m *MockAPI) decide(ctx context.Context, op, candidateID, message string) error {
	m.mu.Lock()
	gate := m.decisionGate
	latency := m.latency
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := m.wait(ctx, latency); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: op, CandidateID: candidateID, Message: message})
	if m.decisionErr != nil {
		return m.decisionErr
	}
	m.decided[candidateID] = true
	return nil
}

func (m *MockAPI) SendLike(ctx context.Context, candidateID string) error {
	return m.decide(ctx, OpLike, candidateID, "")
}

func (m *MockAPI) SendLikeWithMessage(ctx context.Context, candidateID, message string) error {
	return m.decide(ctx, OpLikeMessage, candidateID, message)
}

func (m *MockAPI) SendHide(ctx context.Context, candidateID string) error {
	return m.decide(ctx, OpHide, candidateID, "")
}

func (m *MockAPI) FetchOwnProfile(ctx context.Context) (*entity.OwnProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Op: OpOwnProfile})
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	p := m.profile
	return &p, nil
}

var demoNames = []string{
	"Ana", "Bruno", "Chiara", "Dmitri", "Elif", "Farah", "Goran", "Hana",
	"Ines", "Jonas", "Kemal", "Lea", "Mateo", "Nora", "Oskar", "Priya",
}

var demoInterests = []string{"hiking", "jazz", "board games", "cooking", "climbing", "film", "running", "books"}

// DemoPool builds n deterministic candidates. Every seventh one carries
// enough reports to trip a default safety gate.
func DemoPool(n int) []entity.Candidate {
	pool := make([]entity.Candidate, 0, n)
	for i := 0; i < n; i++ {
		reports := 0
		if i%7 == 6 {
			reports = 5
		}
		pool = append(pool, entity.Candidate{
			ID:              fmt.Sprintf("cand-%03d", i+1),
			Name:            demoNames[i%len(demoNames)],
			Age:             21 + (i*3)%19,
			ImageURL:        fmt.Sprintf("https://images.example.invalid/%03d.jpg", i+1),
			Distance:        float64(1+i*2) / 2,
			SharedInterests: []string{demoInterests[i%len(demoInterests)], demoInterests[(i+3)%len(demoInterests)]},
			Description:     "Demo profile",
			ActivityTier:    entity.ActivityTier(1 + i%4),
			ReportCount:     reports,
		})
	}
	return pool
}
