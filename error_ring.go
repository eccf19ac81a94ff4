package beacon

import (
	"sync"
	"sync/atomic"
)

// errorLog keeps the most recent error and, when sized, a bounded history of
// recent errors, oldest first. A zero size keeps only the most recent error.
type errorLog struct {
	lastErr atomic.Pointer[error]
	total   atomic.Int64

	mu    sync.Mutex
	buf   []error
	next  int
	count int
}

func newErrorLog(size int) *errorLog {
	l := &errorLog{}
	if size > 0 {
		l.buf = make([]error, size)
	}
	return l
}

// record stores err as the most recent error.
func (l *errorLog) record(err error) {
	if err == nil {
		return
	}
	l.lastErr.Store(&err)
	l.total.Add(1)

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) == 0 {
		return
	}
	l.buf[l.next] = err
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
}

// reset forgets the most recent error and the history. The running total is
// kept.
func (l *errorLog) reset() {
	l.lastErr.Store(nil)

	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.next = 0
	l.count = 0
}

// last returns the most recent error, or nil.
func (l *errorLog) last() error {
	if p := l.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// history returns the retained errors, oldest first, or nil.
func (l *errorLog) history() []error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return nil
	}
	out := make([]error, l.count)
	start := (l.next - l.count + len(l.buf)) % len(l.buf)
	for i := range out {
		out[i] = l.buf[(start+i)%len(l.buf)]
	}
	return out
}

// errors returns how many errors have been recorded in total.
func (l *errorLog) errors() int64 {
	return l.total.Load()
}
