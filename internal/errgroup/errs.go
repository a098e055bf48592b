// Package errgroup collects multiple errors raised while processing a
// batch (a round phase, a voter-roll load) into a single error.
package errgroup

import (
	"errors"
	"strings"
	"sync"
)

// Errs accumulates errors from possibly-concurrent callers and exposes
// them as a single error once the batch is done.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

// Add records err. A nil error is a no-op, so callers can write
// errs.Add(maybeFailingCall()) without an extra if.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored reports whether any error has been recorded.
func (e *Errs) Errored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs) > 0
}

// Err returns nil, the sole recorded error, or a combined error joining
// every recorded error's message.
func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		msgs := make([]string, len(e.errs))
		for i, err := range e.errs {
			msgs[i] = err.Error()
		}
		return errors.New(strings.Join(msgs, "; "))
	}
}
