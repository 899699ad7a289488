package store

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Sequencer hands out the seq values log entries are ordered by.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock. Every log entry is stamped with a
// strictly increasing seq from it, so ordering never depends on wall time.
//
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Clock returns a clock that resumes after the highest seq in the log.
func (s *Store) Clock(ctx context.Context) (*Clock, error) {
	last, err := s.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	return NewClockAt(last), nil
}

// LastSeq returns the highest seq in the log, or 0 when it is empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, lastSeqSQL).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}
