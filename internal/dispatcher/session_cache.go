package dispatcher

import (
	"sync"

	"surveyengine/internal/domain/models"
)

// liveSession is one cached in-process graph instance. mu is the
// per-session mutex: Run holds it for the whole node-advance call, so
// a concurrent /chat/continue on the same conversation fails fast with
// a conflict via TryLock instead of queuing behind it.
type liveSession struct {
	mu    sync.Mutex
	state *models.SessionState
}

// sessionCache maps "template_id:conversation_id" to the live graph
// instance actively running that session. Entries are disposable: a
// miss falls back to rebuilding from the checkpoint store, and a
// finished session's entry is simply dropped.
type sessionCache struct {
	sessions sync.Map // string -> *liveSession
}

func sessionKey(templateID, conversationID string) string {
	return templateID + ":" + conversationID
}

// loadOrCreate returns the cached session for key, creating one seeded
// with state if absent. created reports whether this call created it.
func (c *sessionCache) loadOrCreate(key string, state *models.SessionState) (entry *liveSession, created bool) {
	actual, loaded := c.sessions.LoadOrStore(key, &liveSession{state: state})
	return actual.(*liveSession), !loaded
}

func (c *sessionCache) load(key string) (*liveSession, bool) {
	v, ok := c.sessions.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*liveSession), true
}

func (c *sessionCache) store(key string, entry *liveSession) {
	c.sessions.Store(key, entry)
}

func (c *sessionCache) delete(key string) {
	c.sessions.Delete(key)
}
