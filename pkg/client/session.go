package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/pkg/autosave"
)

// Session connects an editor to a BoardStore: change events are debounced
// and saved into the current board.
type Session struct {
	Boards *BoardStore
	saver  *autosave.Controller
}

// NewSession uses the interval from settings when one is stored.
func NewSession(ctx context.Context, boards *BoardStore, settings SettingsStore, logger *logrus.Logger, opts ...autosave.Option) *Session {
	base := []autosave.Option{autosave.WithContext(ctx), autosave.WithLogger(logger)}
	if settings != nil {
		if s, err := settings.Load(); err == nil && s.AutoSaveInterval > 0 {
			base = append(base, autosave.WithInterval(time.Duration(s.AutoSaveInterval)*time.Millisecond))
		}
	}
	save := func(ctx context.Context, snap autosave.Snapshot) error {
		return boards.UpdateCurrentBoard(ctx, snap.Elements, snap.AppState, snap.Files)
	}
	return &Session{Boards: boards, saver: autosave.New(save, append(base, opts...)...)}
}

// OnChange is wired to the canvas change event.
func (s *Session) OnChange(elements []json.RawMessage, appState, files map[string]json.RawMessage) {
	s.saver.Schedule(elements, appState, files)
}

// Flush saves pending edits now, e.g. before switching boards.
func (s *Session) Flush() error { return s.saver.Flush() }

func (s *Session) Pending() bool { return s.saver.Pending() }

// Close drops pending edits; nothing is saved afterwards.
func (s *Session) Close() { s.saver.Close() }
