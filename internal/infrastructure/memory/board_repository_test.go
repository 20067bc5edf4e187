package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

func strPtr(s string) *string { return &s }

func TestBoardRepository_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	r := NewBoardRepository()
	b := &entity.Board{UserID: "alice", Name: "Mine", Data: boarddoc.DefaultData()}
	require.NoError(t, r.Create(ctx, b))

	_, err := r.Get(ctx, "bob", b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = r.Update(ctx, "bob", b.ID, entity.BoardPatch{Name: strPtr("stolen")})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, r.Delete(ctx, "bob", b.ID), repository.ErrNotFound)

	got, err := r.Get(ctx, "alice", b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Name)
}

func TestBoardRepository_ListOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	r := NewBoardRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	r.SetNow(func() time.Time { n++; return base.Add(time.Duration(n) * time.Minute) })

	a := &entity.Board{UserID: "u", Name: "Alpha", Tags: []string{"work"}}
	b := &entity.Board{UserID: "u", Name: "Beta", Tags: []string{"home"}}
	other := &entity.Board{UserID: "v", Name: "Alpha too"}
	for _, x := range []*entity.Board{a, b, other} {
		require.NoError(t, r.Create(ctx, x))
	}
	_, err := r.Update(ctx, "u", a.ID, entity.BoardPatch{Name: strPtr("Alpha v2")})
	require.NoError(t, err)

	all, err := r.List(ctx, "u", entity.BoardFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Empty(t, all[0].Data.Elements)

	byQuery, err := r.List(ctx, "u", entity.BoardFilter{Query: "alp"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, a.ID, byQuery[0].ID)

	byTag, err := r.List(ctx, "u", entity.BoardFilter{Tag: "home"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, b.ID, byTag[0].ID)

	none, err := r.List(ctx, "u", entity.BoardFilter{IDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBoardRepository_UpdateSemantics(t *testing.T) {
	ctx := context.Background()
	r := NewBoardRepository()
	b := &entity.Board{UserID: "u", Name: "n", Thumbnail: strPtr("data:image/png;base64,AA"), Tags: []string{"x"}}
	require.NoError(t, r.Create(ctx, b))

	data := boarddoc.Data{Elements: []json.RawMessage{json.RawMessage(`{"id":"1"}`)}}
	up, err := r.Update(ctx, "u", b.ID, entity.BoardPatch{Data: &data})
	require.NoError(t, err)
	assert.Equal(t, "n", up.Name)
	assert.Len(t, up.Data.Elements, 1)
	assert.NotNil(t, up.Data.AppState)
	require.NotNil(t, up.Thumbnail)
	assert.Equal(t, []string{"x"}, up.Tags)
	assert.True(t, up.UpdatedAt.After(b.UpdatedAt))

	cleared, err := r.Update(ctx, "u", b.ID, entity.BoardPatch{Thumbnail: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Thumbnail)

	require.NoError(t, r.Delete(ctx, "u", b.ID))
	assert.ErrorIs(t, r.Delete(ctx, "u", b.ID), repository.ErrNotFound)
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Create(ctx, &entity.Session{ID: "s1", UserID: "u", ExpiresAt: now.Add(time.Hour)}))
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u", got.UserID)

	now = now.Add(time.Hour)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
