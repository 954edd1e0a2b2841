package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samsaffron/minmax-code/internal/llm"
)

// Store is the interface for session persistence.
type Store interface {
	// Session CRUD
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, limit int) ([]Summary, error)
	Rename(ctx context.Context, id, name string) error
	SetMode(ctx context.Context, id, mode string) error
	Delete(ctx context.Context, id string) error

	// Message log, append-only
	SaveMessage(ctx context.Context, sessionID string, msg llm.Message) error
	Messages(ctx context.Context, sessionID string) ([]StoredMessage, error)

	// Cleanup removes sessions older than maxAgeDays and keeps at most
	// maxCount of the rest. Zero disables either rule.
	Cleanup(ctx context.Context, maxAgeDays, maxCount int) error

	Close() error
}

// Config holds session storage configuration.
type Config struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`                     // Master switch
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days,omitempty"` // Auto-delete after N days (0=never)
	MaxCount   int    `mapstructure:"max_count" yaml:"max_count,omitempty"`       // Keep at most N sessions (0=unlimited)
	Path       string `mapstructure:"path" yaml:"path,omitempty"`                 // Database file, defaults to GetDBPath()
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		MaxAgeDays: 0,
		MaxCount:   0,
	}
}

// GetDataDir returns the XDG data directory for minmax-code.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "minmax-code"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "minmax-code"), nil
}

// GetDBPath returns the path to the sessions database.
func GetDBPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions.db"), nil
}

// NewStore creates a new Store based on the configuration.
// If sessions are disabled, returns a no-op store.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}
