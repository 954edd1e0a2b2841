package session

import (
	"context"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// NoopStore is a no-op implementation of Store used when sessions are disabled.
// It silently discards all writes and returns empty results for reads.
type NoopStore struct{}

func (s *NoopStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	return nil
}

func (s *NoopStore) Get(ctx context.Context, id string) (*Session, error) {
	return nil, nil
}

func (s *NoopStore) List(ctx context.Context, limit int) ([]Summary, error) {
	return nil, nil
}

func (s *NoopStore) Rename(ctx context.Context, id, name string) error {
	return nil
}

func (s *NoopStore) SetMode(ctx context.Context, id, mode string) error {
	return nil
}

func (s *NoopStore) Delete(ctx context.Context, id string) error {
	return nil
}

func (s *NoopStore) SaveMessage(ctx context.Context, sessionID string, msg llm.Message) error {
	return nil
}

func (s *NoopStore) Messages(ctx context.Context, sessionID string) ([]StoredMessage, error) {
	return nil, nil
}

func (s *NoopStore) Cleanup(ctx context.Context, maxAgeDays, maxCount int) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}
