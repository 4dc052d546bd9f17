package storage

import (
	"context"

	"github.com/Togather-Foundation/social-events/internal/domain/events"
	"github.com/Togather-Foundation/social-events/internal/domain/joined"
)

// Store groups data access by domain.
type Store interface {
	Events() events.Repository
	Joined() joined.Repository

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
