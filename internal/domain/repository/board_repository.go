package repository

import (
	"context"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
)

// BoardRepository persists boards. Every operation is scoped to userID and
// reports ErrNotFound when the board does not exist or belongs to someone else.
type BoardRepository interface {
	// List returns boards without Data, most recently updated first.
	List(ctx context.Context, userID string, f entity.BoardFilter) ([]*entity.Board, error)
	Get(ctx context.Context, userID, id string) (*entity.Board, error)
	// Create assigns ID and timestamps on b.
	Create(ctx context.Context, b *entity.Board) error
	Update(ctx context.Context, userID, id string, p entity.BoardPatch) (*entity.Board, error)
	Delete(ctx context.Context, userID, id string) error
}
