package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"capserv/src/app"
	cfg "capserv/src/configuration"
)

// ErrVoteNotFound is returned by GetVote when the pair has no vote.
var ErrVoteNotFound = errors.New("vote not found")

// Store is everything the service reads from and writes to the relational
// store: caption_votes writes for the reconciler plus the read-only feeds.
type Store interface {
	app.VoteStore
	GetVote(ctx context.Context, captionID, voterID string) (app.Vote, error)
	ListRecentVotes(ctx context.Context, voterID string, limit int) ([]app.Vote, error)
	ListPublicCaptions(ctx context.Context, limit int) ([]app.Caption, error)
	Close() error
}

// NewStore connects to Postgres when a DSN is configured and falls back to
// an in-memory store otherwise.
func NewStore(config *cfg.Properties, logger *slog.Logger) (Store, error) {
	if config == nil {
		return nil, fmt.Errorf("config is not valid")
	}
	logger = app.ResolveLogger(logger)
	if config.DB.DSN == "" {
		logger.Warn("no database configured, votes are kept in memory",
			"event", "store_memory_fallback",
		)
		return NewMemoryStore(), nil
	}
	db, err := Connect(config.DB, logger)
	if err != nil {
		return nil, err
	}
	if config.DB.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return NewRepository(db, logger), nil
}
