// Package viewmodel holds the state machines behind each admin screen and
// the public contact form. Presentation reads snapshots and calls actions;
// it never talks to services directly.
package viewmodel

import (
	"context"
	"errors"
	"strings"
)

// ErrSuperseded is returned by a fetch whose response was dropped because a
// newer fetch on the same view started after it.
var ErrSuperseded = errors.New("superseded by a newer request")

// requestTracker orders fetches on one view. Each fetch takes a sequence
// number and cancels its predecessor; only the latest may apply its result.
// Callers hold the view's mutex around every method.
type requestTracker struct {
	seq      uint64
	cancel   context.CancelFunc
	inFlight bool
}

// begin starts a fetch derived from parent and cancels the previous one.
func (t *requestTracker) begin(parent context.Context) (context.Context, uint64) {
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	t.seq++
	t.cancel = cancel
	t.inFlight = true
	return ctx, t.seq
}

// finish reports whether seq is still the latest fetch. When it is, the
// in-flight flag is cleared and its context released.
func (t *requestTracker) finish(seq uint64) bool {
	if seq != t.seq {
		return false
	}
	t.inFlight = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	return true
}

// loading reports whether the latest fetch is still outstanding.
func (t *requestTracker) loading() bool {
	return t.inFlight
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

func normalizeSearch(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
