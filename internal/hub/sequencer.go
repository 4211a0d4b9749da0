package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Sequencer hands out the per-board monotonic sequence numbers stamped on
// events. Current returns the last number handed out, 0 if none.
type Sequencer interface {
	Next(ctx context.Context, boardID int) (int64, error)
	Current(ctx context.Context, boardID int) (int64, error)
	Forget(ctx context.Context, boardID int) error
}

// MemorySequencer keeps sequence numbers in process
type MemorySequencer struct {
	mu   sync.Mutex
	seqs map[int]int64
}

// NewMemorySequencer returns an empty in-process sequencer
func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{seqs: make(map[int]int64)}
}

// Next increments and returns the board's sequence
func (s *MemorySequencer) Next(_ context.Context, boardID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqs[boardID]++
	return s.seqs[boardID], nil
}

// Current returns the board's last sequence
func (s *MemorySequencer) Current(_ context.Context, boardID int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seqs[boardID], nil
}

// RedisSequencer keeps sequence numbers in Redis so every server sharing the
// instance stamps from the same counter
type RedisSequencer struct {
	rc     *redis.Client
	prefix string
}

// NewRedisSequencer stores counters under prefix+"seq:<boardID>"
func NewRedisSequencer(rc *redis.Client, prefix string) *RedisSequencer {
	return &RedisSequencer{rc: rc, prefix: prefix}
}

func (s *RedisSequencer) key(boardID int) string {
	return fmt.Sprintf("%sseq:%d", s.prefix, boardID)
}

// Next increments and returns the board's sequence
func (s *RedisSequencer) Next(ctx context.Context, boardID int) (int64, error) {
	n, err := s.rc.Incr(ctx, s.key(boardID)).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing board %d sequence: %w", boardID, err)
	}
	return n, nil
}

// Current returns the board's last sequence
func (s *RedisSequencer) Current(ctx context.Context, boardID int) (int64, error) {
	n, err := s.rc.Get(ctx, s.key(boardID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading board %d sequence: %w", boardID, err)
	}
	return n, nil
}

// Forget drops the board's counter, used once a board is deleted
func (s *RedisSequencer) Forget(ctx context.Context, boardID int) error {
	return s.rc.Del(ctx, s.key(boardID)).Err()
}

// Forget drops the board's counter, used once a board is deleted
func (s *MemorySequencer) Forget(_ context.Context, boardID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seqs, boardID)
	return nil
}
