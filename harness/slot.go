package harness

import (
	"context"
	"sync"

	"github.com/casualjim/sqlowl/api"
)

// Slot carries the result of one run. Only the first Fill is kept.
type Slot struct {
	once   sync.Once
	done   chan struct{}
	result api.RunResult
}

func NewSlot() *Slot {
	return &Slot{done: make(chan struct{})}
}

// Fill stores res unless the slot is already filled. It reports whether res was stored.
func (s *Slot) Fill(res api.RunResult) bool {
	filled := false
	s.once.Do(func() {
		s.result = res
		filled = true
		close(s.done)
	})
	return filled
}

// Done is closed once the slot is filled.
func (s *Slot) Done() <-chan struct{} {
	return s.done
}

// Result returns the stored result without waiting.
func (s *Slot) Result() (api.RunResult, bool) {
	select {
	case <-s.done:
		return s.result, true
	default:
		return api.RunResult{}, false
	}
}

// Wait blocks until the slot is filled or ctx is done.
func (s *Slot) Wait(ctx context.Context) (api.RunResult, error) {
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return api.RunResult{}, ctx.Err()
	}
}
