package core

import (
	"context"
	"sync"
)

// StatsCounters are cumulative generation counters.
type StatsCounters struct {
	Decks   int64 `json:"decks"`
	Slides  int64 `json:"slides"`
	Skipped int64 `json:"skipped"`
}

func (c *StatsCounters) add(r AssemblyReport) {
	c.Decks++
	c.Slides += int64(r.Slides)
	c.Skipped += int64(len(r.Skipped))
}

// StatsSnapshot pairs the global counters with those of one user.
type StatsSnapshot struct {
	Total StatsCounters `json:"total"`
	User  StatsCounters `json:"user"`
}

// GenerationStats records finished generations.
type GenerationStats interface {
	Record(ctx context.Context, user string, r AssemblyReport) error
	Snapshot(ctx context.Context, user string) (StatsSnapshot, error)
}

// MemoryStats keeps counters for the lifetime of the process.
type MemoryStats struct {
	mu    sync.Mutex
	total StatsCounters
	users map[string]StatsCounters
}

func NewMemoryStats() *MemoryStats {
	return &MemoryStats{users: map[string]StatsCounters{}}
}

func (s *MemoryStats) Record(_ context.Context, user string, r AssemblyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.add(r)
	u := s.users[user]
	u.add(r)
	s.users[user] = u
	return nil
}

func (s *MemoryStats) Snapshot(_ context.Context, user string) (StatsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{Total: s.total, User: s.users[user]}, nil
}
