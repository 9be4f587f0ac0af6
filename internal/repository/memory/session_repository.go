package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// LiveSession is a running session the registry can tear down.
type LiveSession interface {
	ID() string
	Close()
}

// SessionRepository keeps live sessions addressable by id. A session left
// untouched for the idle TTL is evicted and closed, the way a backgrounded
// app loses its discovery screen.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(idleTTL time.Duration) *SessionRepository {
	c := cache.New(idleTTL, idleTTL/2)
	c.OnEvicted(func(_ string, v interface{}) {
		if s, ok := v.(LiveSession); ok {
			s.Close()
		}
	})
	return &SessionRepository{
		cache: c,
	}
}

// Save stores the session and restarts its idle timer.
func (r *SessionRepository) Save(session LiveSession) {
	r.cache.Set(session.ID(), session, cache.DefaultExpiration)
}

// Touch restarts the idle timer of a session that is still registered. It
// reports false once the session was deleted or evicted.
func (r *SessionRepository) Touch(session LiveSession) bool {
	return r.cache.Replace(session.ID(), session, cache.DefaultExpiration) == nil
}

func (r *SessionRepository) Get(sessionID string) (LiveSession, bool) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(LiveSession), true
	}
	return nil, false
}

// Delete removes and closes the session.
func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
