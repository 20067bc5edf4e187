package entity

import (
	"time"

	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

// Board is a user's drawing document. UserID never leaves the server.
type Board struct {
	ID        string
	UserID    string
	Name      string
	Data      boarddoc.Data
	Thumbnail *string
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BoardPatch lists the fields of a partial update. Nil means unchanged.
// A non-nil empty Thumbnail clears the stored thumbnail.
type BoardPatch struct {
	Name      *string
	Data      *boarddoc.Data
	Thumbnail *string
	Tags      *[]string
}

// BoardFilter narrows a board listing. IDs, when non-nil, restricts the
// result to those boards (used with search hits).
type BoardFilter struct {
	Query string
	Tag   string
	IDs   []string
}

// Wire returns the API representation of b.
func (b *Board) Wire() boarddoc.Board {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return boarddoc.Board{
		ID:        b.ID,
		Name:      b.Name,
		Data:      b.Data.Normalize(),
		Thumbnail: b.Thumbnail,
		Tags:      tags,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (b *Board) Metadata() boarddoc.Metadata {
	return b.Wire().Metadata()
}

// Document returns the flattened working form of b.
func (b *Board) Document() boarddoc.Document {
	return boarddoc.FromBoard(b.Wire())
}
