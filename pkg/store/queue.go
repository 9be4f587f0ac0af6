package store

import (
	"errors"
	"sync"

	"discovery-client/internal/entity"
)

var ErrUnknownCandidate = errors.New("candidate is not in the queue")

// CandidateQueue is the ordered candidate list of one session. Candidates
// that were decided on (advanced past or removed) are remembered for the
// session so a later batch cannot bring them back.
type CandidateQueue struct {
	mu              sync.Mutex
	items           []entity.Candidate
	cursor          int
	decided         map[string]struct{}
	safetyThreshold int
}

// NewCandidateQueue creates an empty queue. A safetyThreshold of zero
// disables the safety gate.
func NewCandidateQueue(safetyThreshold int) *CandidateQueue {
	return &CandidateQueue{
		decided:         make(map[string]struct{}),
		safetyThreshold: safetyThreshold,
	}
}

// Load replaces the queue with batch and resets the cursor. Duplicate ids
// keep their first occurrence; candidates already decided in this session
// are skipped. Returns the number of candidates queued.
func (q *CandidateQueue) Load(batch []entity.Candidate) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	seen := make(map[string]struct{}, len(batch))
	items := make([]entity.Candidate, 0, len(batch))
	for _, c := range batch {
		if c.ID == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if _, done := q.decided[c.ID]; done {
			continue
		}
		seen[c.ID] = struct{}{}
		items = append(items, c)
	}

	q.items = items
	q.cursor = 0
	return len(items)
}

// Front returns the candidate currently presented.
func (q *CandidateQueue) Front() (entity.Candidate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cursor >= len(q.items) {
		return entity.Candidate{}, false
	}
	return q.items[q.cursor], true
}

// Advance moves past the front and returns it. The caller triggers a refill
// when Exhausted reports true afterwards.
func (q *CandidateQueue) Advance() (entity.Candidate, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.advanceLocked()
}

func (q *CandidateQueue) advanceLocked() (entity.Candidate, bool) {
	if q.cursor >= len(q.items) {
		return entity.Candidate{}, false
	}
	c := q.items[q.cursor]
	q.decided[c.ID] = struct{}{}
	q.cursor++
	return c, true
}

// RemoveByID excises a candidate wherever it sits. Removing the front is
// the same as Advance. The id is remembered as decided even when it is not
// queued, so it is filtered from later batches.
func (q *CandidateQueue) RemoveByID(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.decided[id] = struct{}{}

	for i := q.cursor; i < len(q.items); i++ {
		if q.items[i].ID != id {
			continue
		}
		if i == q.cursor {
			q.cursor++
			return nil
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		return nil
	}
	return ErrUnknownCandidate
}

// Contains reports whether id is still ahead of (or at) the cursor.
func (q *CandidateQueue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := q.cursor; i < len(q.items); i++ {
		if q.items[i].ID == id {
			return true
		}
	}
	return false
}

// Decided reports whether id was advanced past or removed in this session.
func (q *CandidateQueue) Decided(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.decided[id]
	return ok
}

// Len returns the number of candidates not yet advanced past.
func (q *CandidateQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.cursor
}

func (q *CandidateQueue) Exhausted() bool {
	return q.Len() == 0
}

// SafetyGated reports whether c should be shown behind a confirmation step.
func (q *CandidateQueue) SafetyGated(c entity.Candidate) bool {
	return q.safetyThreshold > 0 && c.ReportCount >= q.safetyThreshold
}

// Reset drops everything, including the decided set. Used on teardown.
func (q *CandidateQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	q.cursor = 0
	q.decided = make(map[string]struct{})
}
