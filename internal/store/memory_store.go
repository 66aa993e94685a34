package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ai2b/zena/internal/domain"
)

// MemoryDialogStore is an in-memory DialogStore for tests and ephemeral runs.
type MemoryDialogStore struct {
	mu       sync.RWMutex
	channels map[string]Channel
	history  map[string][]domain.Message
	masters  map[string][]Master
}

// NewMemoryDialogStore creates an empty in-memory dialog store.
func NewMemoryDialogStore() *MemoryDialogStore {
	return &MemoryDialogStore{
		channels: make(map[string]Channel),
		history:  make(map[string][]domain.Message),
		masters:  make(map[string][]Master),
	}
}

func dialogKey(channelID, chatID string) string {
	return channelID + "|" + chatID
}

// Channel returns the channel, or ErrChannelNotFound.
func (s *MemoryDialogStore) Channel(_ context.Context, channelID string) (Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ch, ok := s.channels[channelID]
	if !ok {
		return Channel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	return ch, nil
}

// UpsertChannel inserts or replaces a channel.
func (s *MemoryDialogStore) UpsertChannel(_ context.Context, ch Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[ch.ID] = ch
	return nil
}

// History returns up to limit most recent messages, oldest first.
func (s *MemoryDialogStore) History(_ context.Context, channelID, chatID string, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.history[dialogKey(channelID, chatID)]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Append adds a message to a dialog.
func (s *MemoryDialogStore) Append(_ context.Context, channelID, chatID string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := dialogKey(channelID, chatID)
	s.history[key] = append(s.history[key], msg)
	return nil
}

// ClearHistory deletes all messages of a dialog.
func (s *MemoryDialogStore) ClearHistory(_ context.Context, channelID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, dialogKey(channelID, chatID))
	return nil
}

// Masters returns the masters of a channel sorted by name.
func (s *MemoryDialogStore) Masters(_ context.Context, channelID string) ([]Master, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	masters := make([]Master, len(s.masters[channelID]))
	copy(masters, s.masters[channelID])
	sort.Slice(masters, func(i, j int) bool { return masters[i].Name < masters[j].Name })
	return masters, nil
}

// AddMaster inserts a master.
func (s *MemoryDialogStore) AddMaster(_ context.Context, m Master) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masters[m.ChannelID] = append(s.masters[m.ChannelID], m)
	return nil
}
