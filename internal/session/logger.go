package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// LoggingStore wraps a Store and logs write failures instead of returning
// them, so persistence problems never abort a turn.
type LoggingStore struct {
	Store
	logger *slog.Logger
	mu     sync.Mutex
	warned map[string]bool // Rate-limit warnings by operation type
}

// NewLoggingStore creates a new LoggingStore wrapper. A nil logger uses
// slog.Default().
func NewLoggingStore(store Store, logger *slog.Logger) *LoggingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingStore{
		Store:  store,
		logger: logger,
		warned: make(map[string]bool),
	}
}

// logOnce logs a warning only once per operation type to avoid spamming.
func (s *LoggingStore) logOnce(op string, err error) {
	if err == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.warned[op] {
		s.logger.Debug("session write failed", "op", op, "error", err)
		return
	}
	s.warned[op] = true
	s.logger.Warn("session write failed", "op", op, "error", err)
}

// SaveMessage wraps Store.SaveMessage; errors are logged and swallowed.
func (s *LoggingStore) SaveMessage(ctx context.Context, sessionID string, msg llm.Message) error {
	s.logOnce("SaveMessage", s.Store.SaveMessage(ctx, sessionID, msg))
	return nil
}

// Rename wraps Store.Rename; errors are logged and swallowed.
func (s *LoggingStore) Rename(ctx context.Context, id, name string) error {
	s.logOnce("Rename", s.Store.Rename(ctx, id, name))
	return nil
}

// SetMode wraps Store.SetMode; errors are logged and swallowed.
func (s *LoggingStore) SetMode(ctx context.Context, id, mode string) error {
	s.logOnce("SetMode", s.Store.SetMode(ctx, id, mode))
	return nil
}
