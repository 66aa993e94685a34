package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/logging"
)

// DialogStateStore keeps the current dialog state per (channel, chat). State
// lives in Redis so it survives restarts; without Redis it degrades to an
// in-process map.
type DialogStateStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *logging.Logger

	mu     sync.RWMutex
	memory map[string]domain.DialogState
}

// NewDialogStateStore creates the store. rdb may be nil.
func NewDialogStateStore(rdb *redis.Client, ttl time.Duration, log *logging.Logger) *DialogStateStore {
	return &DialogStateStore{
		rdb:    rdb,
		ttl:    ttl,
		log:    log.Sub("dialog-state"),
		memory: make(map[string]domain.DialogState),
	}
}

func stateKey(channelID, chatID string) string {
	return "dialog:" + channelID + ":" + chatID + ":state"
}

// Get returns the stored state, or StateNew when none is recorded.
func (s *DialogStateStore) Get(ctx context.Context, channelID, chatID string) domain.DialogState {
	if s.rdb != nil {
		val, err := s.rdb.Get(ctx, stateKey(channelID, chatID)).Result()
		if err == nil {
			if st := domain.DialogState(val); domain.ValidState(st) {
				return st
			}
		} else if err != redis.Nil {
			s.log.Warn().Err(err).Msg("redis get failed, using memory state")
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.memory[stateKey(channelID, chatID)]; ok {
		return st
	}
	return domain.StateNew
}

// Set records the state for a dialog.
func (s *DialogStateStore) Set(ctx context.Context, channelID, chatID string, state domain.DialogState) {
	key := stateKey(channelID, chatID)

	s.mu.Lock()
	s.memory[key] = state
	s.mu.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, key, string(state), s.ttl).Err(); err != nil {
			s.log.Warn().Err(err).Msg("redis set failed, state kept in memory only")
		}
	}
}

// Reset drops the dialog back to the initial state.
func (s *DialogStateStore) Reset(ctx context.Context, channelID, chatID string) {
	key := stateKey(channelID, chatID)

	s.mu.Lock()
	delete(s.memory, key)
	s.mu.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			s.log.Warn().Err(err).Msg("redis del failed")
		}
	}
}
