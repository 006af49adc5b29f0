package cancellation

import (
	"sync"
	"time"
)

// Token is a one-shot cancellation signal with waiters. Once fired it
// cannot be unset. One token exists per active pipeline id.
type Token struct {
	mu      sync.Mutex
	done    chan struct{}
	fired   bool
	reason  string
	firedAt time.Time
}

// NewToken creates an unfired token.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel fires the token with the given reason. It returns true on the
// first call and false on every subsequent call; the original reason and
// timestamp are preserved.
func (t *Token) Cancel(reason string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.fired {
		return false
	}
	t.fired = true
	t.reason = reason
	t.firedAt = time.Now()
	close(t.done)
	return true
}

// Done returns a channel closed when the token fires.
func (t *Token) Done() <-chan struct{} {
	return t.done
}

// Cancelled reports whether the token has fired.
func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired
}

// Reason returns the cancellation reason, or "" if the token has not fired.
func (t *Token) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// FiredAt returns when the token fired, zero if it has not.
func (t *Token) FiredAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firedAt
}
