package repository

import (
	"context"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
)

// BoardIndex is a secondary full-text index over board names and tags.
type BoardIndex interface {
	Index(ctx context.Context, b *entity.Board) error
	Remove(ctx context.Context, id string) error
	// Search returns ids of the user's boards matching q, best match first.
	Search(ctx context.Context, userID, q string, size int) ([]string, error)
}
