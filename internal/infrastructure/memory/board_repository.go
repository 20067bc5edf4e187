// Package memory holds in-process repository implementations used by tests
// and local tooling.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/internal/domain/repository"
	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

type BoardRepository struct {
	mu     sync.RWMutex
	boards map[string]*entity.Board
	clock  *clock
}

func NewBoardRepository() *BoardRepository {
	return &BoardRepository{boards: make(map[string]*entity.Board), clock: &clock{now: time.Now}}
}

// SetNow overrides the time source.
func (r *BoardRepository) SetNow(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = &clock{now: now}
}

func (r *BoardRepository) List(_ context.Context, userID string, f entity.BoardFilter) ([]*entity.Board, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[string]bool
	if f.IDs != nil {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	tag := strings.TrimSpace(f.Tag)

	out := make([]*entity.Board, 0)
	for _, b := range r.boards {
		if b.UserID != userID {
			continue
		}
		if ids != nil && !ids[b.ID] {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(b.Name), q) && !hasTagFold(b.Tags, q) {
			continue
		}
		if tag != "" && !hasTag(b.Tags, tag) {
			continue
		}
		c := copyBoard(b)
		c.Data = boarddoc.Data{}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *BoardRepository) Get(_ context.Context, userID, id string) (*entity.Board, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boards[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return copyBoard(b), nil
}

func (r *BoardRepository) Create(_ context.Context, b *entity.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.tick()
	stored := copyBoard(b)
	stored.ID = uuid.NewString()
	stored.Data = stored.Data.Normalize()
	if stored.Tags == nil {
		stored.Tags = []string{}
	}
	if stored.Thumbnail != nil && *stored.Thumbnail == "" {
		stored.Thumbnail = nil
	}
	stored.CreatedAt, stored.UpdatedAt = now, now
	r.boards[stored.ID] = stored
	*b = *copyBoard(stored)
	return nil
}

func (r *BoardRepository) Update(_ context.Context, userID, id string, p entity.BoardPatch) (*entity.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[id]
	if !ok || b.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Data != nil {
		b.Data = copyData(p.Data.Normalize())
	}
	if p.Thumbnail != nil {
		if *p.Thumbnail == "" {
			b.Thumbnail = nil
		} else {
			t := *p.Thumbnail
			b.Thumbnail = &t
		}
	}
	if p.Tags != nil {
		b.Tags = append([]string{}, (*p.Tags)...)
	}
	b.UpdatedAt = r.clock.tick()
	return copyBoard(b), nil
}

func (r *BoardRepository) Delete(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[id]
	if !ok || b.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.boards, id)
	return nil
}

// Len reports how many boards are stored across all users.
func (r *BoardRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.boards)
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func hasTagFold(tags []string, lower string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == lower {
			return true
		}
	}
	return false
}

func copyBoard(b *entity.Board) *entity.Board {
	c := *b
	c.Data = copyData(b.Data)
	if b.Tags != nil {
		c.Tags = append([]string{}, b.Tags...)
	}
	if b.Thumbnail != nil {
		t := *b.Thumbnail
		c.Thumbnail = &t
	}
	return &c
}

func copyData(d boarddoc.Data) boarddoc.Data {
	out := boarddoc.Data{}
	if d.Elements != nil {
		out.Elements = append(d.Elements[:0:0], d.Elements...)
	}
	if d.AppState != nil {
		out.AppState = make(map[string]json.RawMessage, len(d.AppState))
		for k, v := range d.AppState {
			out.AppState[k] = v
		}
	}
	if d.Files != nil {
		out.Files = make(map[string]json.RawMessage, len(d.Files))
		for k, v := range d.Files {
			out.Files[k] = v
		}
	}
	return out
}

// clock hands out strictly increasing timestamps.
type clock struct {
	now  func() time.Time
	last time.Time
}

func (c *clock) tick() time.Time {
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}

var _ repository.BoardRepository = (*BoardRepository)(nil)
