package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
	"github.com/maplify-tech/whiteboard/pkg/boardfile"
	"github.com/maplify-tech/whiteboard/pkg/thumbnail"
)

const UntitledBoard = "Untitled Board"

type BoardState struct {
	Boards         []boarddoc.Metadata
	CurrentBoardID string
	CurrentBoard   *boarddoc.Document
	Loading        bool
	Error          string
	LastSavedAt    time.Time
}

// BoardStore holds the board list and the board open in the editor. Every
// board received from the API is flattened with boarddoc.ToWorking.
type BoardStore struct {
	api      *Client
	settings SettingsStore
	thumbs   *thumbnail.Generator
	logger   *logrus.Logger
	now      func() time.Time
	state    *observable[BoardState]
}

// NewBoardStore builds a store. A nil thumbs generator skips thumbnails.
func NewBoardStore(api *Client, settings SettingsStore, thumbs *thumbnail.Generator, logger *logrus.Logger) *BoardStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BoardStore{
		api:      api,
		settings: settings,
		thumbs:   thumbs,
		logger:   logger,
		now:      time.Now,
		state:    newObservable(BoardState{Boards: []boarddoc.Metadata{}, Loading: true}),
	}
}

func (s *BoardStore) State() BoardState { return s.state.get() }

func (s *BoardStore) Subscribe(fn func(BoardState)) func() { return s.state.subscribe(fn) }

// LoadBoards fetches the list and opens the last used board, the first
// board, or a new empty one.
func (s *BoardStore) LoadBoards(ctx context.Context) error {
	s.begin()
	boards, err := s.api.ListBoards(ctx, ListOptions{})
	if err != nil {
		return s.fail(err, "Failed to load boards")
	}
	s.state.update(func(st *BoardState) { st.Boards, st.Loading = boards, false })

	if len(boards) == 0 {
		return s.CreateBoard(ctx, UntitledBoard)
	}
	id := boards[0].ID
	if last := s.lastBoardID(); last != "" && containsBoard(boards, last) {
		id = last
	}
	return s.SelectBoard(ctx, id)
}

// CreateBoard creates an empty board and opens it.
func (s *BoardStore) CreateBoard(ctx context.Context, name string) error {
	s.begin()
	b, err := s.api.CreateBoard(ctx, CreateBoardRequest{Name: name, Data: boarddoc.DefaultData()})
	if err != nil {
		return s.fail(err, "Failed to create board")
	}
	doc := boarddoc.ToWorking(*b)
	boards, err := s.api.ListBoards(ctx, ListOptions{})
	if err != nil {
		return s.fail(err, "Failed to create board")
	}
	s.state.update(func(st *BoardState) {
		st.Boards, st.CurrentBoardID, st.CurrentBoard, st.Loading = boards, doc.ID, &doc, false
	})
	s.rememberBoard(doc.ID)
	return nil
}

func (s *BoardStore) SelectBoard(ctx context.Context, id string) error {
	s.begin()
	b, err := s.api.GetBoard(ctx, id)
	if err != nil {
		return s.fail(err, "Failed to load board")
	}
	doc := boarddoc.ToWorking(*b)
	s.state.update(func(st *BoardState) {
		st.CurrentBoardID, st.CurrentBoard, st.Loading = id, &doc, false
	})
	s.rememberBoard(id)
	return nil
}

// UpdateCurrentBoard persists the editor contents with a fresh thumbnail.
// Failures are logged and returned but never become the visible error:
// drawing must not be interrupted by a failed save.
func (s *BoardStore) UpdateCurrentBoard(ctx context.Context, elements []json.RawMessage, appState, files map[string]json.RawMessage) error {
	cur := s.state.get().CurrentBoard
	if cur == nil {
		return nil
	}
	data := boarddoc.Data{Elements: elements, AppState: appState, Files: files}.Normalize()
	req := UpdateBoardRequest{Data: &data}
	if s.thumbs != nil {
		if thumb, ok := s.thumbs.Generate(ctx, data.Elements, data.AppState, data.Files); ok {
			req.Thumbnail = &thumb
		}
	}

	b, err := s.api.UpdateBoard(ctx, cur.ID, req)
	if err != nil {
		s.logger.WithError(err).WithField("board_id", cur.ID).Warn("save board failed")
		return err
	}
	doc := boarddoc.ToWorking(*b)
	s.state.update(func(st *BoardState) {
		if st.CurrentBoardID == doc.ID {
			st.CurrentBoard = &doc
		}
		st.LastSavedAt = s.now()
	})

	boards, err := s.api.ListBoards(ctx, ListOptions{})
	if err != nil {
		s.logger.WithError(err).Warn("refresh board list failed")
		return nil
	}
	s.state.update(func(st *BoardState) { st.Boards = boards })
	return nil
}

func (s *BoardStore) RenameBoard(ctx context.Context, id, name string) error {
	if _, err := s.api.UpdateBoard(ctx, id, UpdateBoardRequest{Name: &name}); err != nil {
		return s.fail(err, "Failed to rename board")
	}
	if err := s.refresh(ctx); err != nil {
		return s.fail(err, "Failed to rename board")
	}
	if s.state.get().CurrentBoardID == id {
		b, err := s.api.GetBoard(ctx, id)
		if err != nil {
			return s.fail(err, "Failed to rename board")
		}
		doc := boarddoc.ToWorking(*b)
		s.state.update(func(st *BoardState) { st.CurrentBoard = &doc })
	}
	return nil
}

func (s *BoardStore) DuplicateBoard(ctx context.Context, id string) error {
	if _, err := s.api.DuplicateBoard(ctx, id); err != nil {
		return s.fail(err, "Failed to duplicate board")
	}
	if err := s.refresh(ctx); err != nil {
		return s.fail(err, "Failed to duplicate board")
	}
	return nil
}

// RemoveBoard deletes a board. When it was open, the first remaining board
// is opened, or a new one is created.
func (s *BoardStore) RemoveBoard(ctx context.Context, id string) error {
	if err := s.api.DeleteBoard(ctx, id); err != nil {
		return s.fail(err, "Failed to delete board")
	}
	if err := s.refresh(ctx); err != nil {
		return s.fail(err, "Failed to delete board")
	}
	st := s.state.get()
	if st.CurrentBoardID != id {
		return nil
	}
	if len(st.Boards) > 0 {
		return s.SelectBoard(ctx, st.Boards[0].ID)
	}
	return s.CreateBoard(ctx, UntitledBoard)
}

// ImportBoards creates every document under the current user, then opens
// the first board of the refreshed list. Boards without a thumbnail get one
// rendered when a generator is configured.
func (s *BoardStore) ImportBoards(ctx context.Context, docs []boarddoc.Document) error {
	for _, d := range docs {
		req := CreateBoardRequest{
			Name:      d.Name,
			Data:      boarddoc.ToWire(d),
			Thumbnail: d.Thumbnail,
			Tags:      d.Tags,
		}
		if req.Name == "" {
			req.Name = UntitledBoard
		}
		if req.Thumbnail == nil && s.thumbs != nil {
			if thumb, ok := s.thumbs.Generate(ctx, req.Data.Elements, req.Data.AppState, req.Data.Files); ok {
				req.Thumbnail = &thumb
			}
		}
		if _, err := s.api.CreateBoard(ctx, req); err != nil {
			return s.fail(err, "Failed to import boards")
		}
	}
	if err := s.refresh(ctx); err != nil {
		return s.fail(err, "Failed to import boards")
	}
	if boards := s.state.get().Boards; len(boards) > 0 {
		return s.SelectBoard(ctx, boards[0].ID)
	}
	return nil
}

// ImportFile parses an export file and imports its boards.
func (s *BoardStore) ImportFile(ctx context.Context, content []byte) (int, error) {
	res, err := boardfile.Parse(content)
	if err != nil {
		err = fmt.Errorf("invalid file: %w", err)
		s.state.update(func(st *BoardState) { st.Error = "invalid file" })
		return 0, err
	}
	docs := res.Boards()
	return len(docs), s.ImportBoards(ctx, docs)
}

func (s *BoardStore) ClearError() {
	s.state.update(func(st *BoardState) { st.Error = "" })
}

func (s *BoardStore) refresh(ctx context.Context) error {
	boards, err := s.api.ListBoards(ctx, ListOptions{})
	if err != nil {
		return err
	}
	s.state.update(func(st *BoardState) { st.Boards = boards })
	return nil
}

func (s *BoardStore) begin() {
	s.state.update(func(st *BoardState) { st.Loading, st.Error = true, "" })
}

func (s *BoardStore) fail(err error, fallback string) error {
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	s.state.update(func(st *BoardState) { st.Error, st.Loading = msg, false })
	return err
}

func (s *BoardStore) lastBoardID() string {
	if s.settings == nil {
		return ""
	}
	set, err := s.settings.Load()
	if err != nil {
		return ""
	}
	return set.LastBoardID
}

func (s *BoardStore) rememberBoard(id string) {
	if err := updateSettings(s.settings, func(set *Settings) { set.LastBoardID = id }); err != nil {
		s.logger.WithError(err).Warn("persist last board failed")
	}
}

func containsBoard(boards []boarddoc.Metadata, id string) bool {
	for _, b := range boards {
		if b.ID == id {
			return true
		}
	}
	return false
}
