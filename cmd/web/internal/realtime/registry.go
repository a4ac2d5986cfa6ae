package realtime

import "sync"

const (
	// MaxSubscribersPerSession limits open SSE streams per session so one
	// room full of duplicate tabs can't exhaust the web process.
	MaxSubscribersPerSession = 50

	// subscriberBuffer is the per-channel send buffer. A subscriber that
	// falls this far behind is treated as dead and pruned.
	subscriberBuffer = 8
)

// Registry tracks, per session code, the set of open subscriber channels and
// the most recent channel associated with each named participant. The
// participant map is a lookup aid for connectivity flags; channel ownership
// stays with the subscriber set.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	subs         map[chan []byte]struct{}
	participants map[string]chan []byte
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*sessionEntry),
	}
}

func (r *Registry) getOrCreateSession(code string) *sessionEntry {
	e, ok := r.sessions[code]
	if ok {
		return e
	}
	e = &sessionEntry{
		subs:         make(map[chan []byte]struct{}),
		participants: make(map[string]chan []byte),
	}
	r.sessions[code] = e
	return e
}

// Subscribe registers a new subscriber channel for a session and returns the
// channel plus an idempotent unsubscribe function. Over the per-session cap
// the returned channel is already closed.
func (r *Registry) Subscribe(code string) (chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	r.mu.Lock()
	e := r.getOrCreateSession(code)
	if len(e.subs) >= MaxSubscribersPerSession {
		r.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	e.subs[ch] = struct{}{}
	r.mu.Unlock()

	return ch, func() { r.Unsubscribe(code, ch) }
}

// Unsubscribe removes a channel from a session, closes it, and drops any
// participant mapping that pointed at it. The session entry is removed
// entirely once its subscriber set is empty, so abandoned sessions carry no
// residual memory. Safe to call more than once.
func (r *Registry) Unsubscribe(code string, ch chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	if !ok {
		return
	}
	r.removeLocked(code, e, ch)
}

// removeLocked drops a channel from a session entry. Callers hold r.mu;
// channels are only ever closed here, under the lock, which is what lets
// Publish send without checking for closure.
func (r *Registry) removeLocked(code string, e *sessionEntry, ch chan []byte) {
	if _, ok := e.subs[ch]; ok {
		delete(e.subs, ch)
		close(ch)
	}
	for name, pch := range e.participants {
		if pch == ch {
			delete(e.participants, name)
		}
	}
	if len(e.subs) == 0 {
		delete(r.sessions, code)
	}
}

// Publish delivers payload to every subscriber of a session with a
// non-blocking send. Sends happen under the registry lock so a concurrent
// Unsubscribe can never close a channel mid-send. A full buffer marks the
// subscriber dead; dead channels are pruned before returning. The sends are
// buffered handoffs, never I/O, so the lock hold stays short.
func (r *Registry) Publish(code string, payload []byte) (delivered, pruned int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	if !ok {
		return 0, 0
	}

	var dead []chan []byte
	for ch := range e.subs {
		select {
		case ch <- payload:
			delivered++
		default:
			// Full buffer means the reader is gone or hopelessly behind.
			dead = append(dead, ch)
		}
	}
	for _, ch := range dead {
		r.removeLocked(code, e, ch)
	}
	return delivered, len(dead)
}

// TrackParticipant records ch as the live channel for a named participant.
// Last writer wins; a reconnecting tab displaces the previous mapping.
func (r *Registry) TrackParticipant(code, name string, ch chan []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	if !ok {
		return
	}
	e.participants[name] = ch
}

// UntrackParticipant drops the participant mapping for a name.
func (r *Registry) UntrackParticipant(code, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	if !ok {
		return
	}
	delete(e.participants, name)
}

// IsConnected reports whether a participant has a tracked channel that is
// still a live member of the session's subscriber set. Host handling is the
// caller's concern; this reports raw channel liveness only.
func (r *Registry) IsConnected(code, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	if !ok {
		return false
	}
	ch, ok := e.participants[name]
	if !ok {
		return false
	}
	_, live := e.subs[ch]
	return live
}

// HasSubscribers reports whether any channel is open for a session.
func (r *Registry) HasSubscribers(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	return ok && len(e.subs) > 0
}

// SubscriberCount returns the number of open channels for a session.
func (r *Registry) SubscriberCount(code string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[code]
	if !ok {
		return 0
	}
	return len(e.subs)
}
