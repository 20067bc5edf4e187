package boardfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

// Result holds exactly one of Single or Multi.
type Result struct {
	Single *boarddoc.Document
	Multi  []boarddoc.Document
}

// Boards returns the parsed boards regardless of envelope kind.
func (r Result) Boards() []boarddoc.Document {
	if r.Single != nil {
		return []boarddoc.Document{*r.Single}
	}
	return r.Multi
}

// Parser turns export files back into working documents. Ids and timestamps
// in the file are discarded: every board gets a fresh id and is stamped with
// the parse time.
type Parser struct {
	Now   func() time.Time
	NewID func() string
}

var defaultParser = Parser{
	Now:   time.Now,
	NewID: func() string { return uuid.NewString() },
}

// Parse tries the single-board envelope first, then the multi-board one.
func Parse(content []byte) (Result, error) {
	return defaultParser.Parse(content)
}

func (p Parser) Parse(content []byte) (Result, error) {
	var top map[string]json.RawMessage
	if !isKind(content, '{') || json.Unmarshal(content, &top) != nil {
		return Result{}, ErrInvalidFormat
	}

	if doc, ok := p.parseSingle(top); ok {
		if err := checkVersion(top); err != nil {
			return Result{}, err
		}
		return Result{Single: &doc}, nil
	}
	if docs, ok := p.parseMulti(top); ok {
		if err := checkVersion(top); err != nil {
			return Result{}, err
		}
		return Result{Multi: docs}, nil
	}
	return Result{}, ErrInvalidFormat
}

func (p Parser) parseSingle(top map[string]json.RawMessage) (boarddoc.Document, bool) {
	if !hasVersion(top) || !isPresent(top["metadata"]) {
		return boarddoc.Document{}, false
	}
	var board map[string]json.RawMessage
	if !isKind(top["board"], '{') || json.Unmarshal(top["board"], &board) != nil {
		return boarddoc.Document{}, false
	}
	if !isKind(board["elements"], '[') || !isPresent(board["appState"]) {
		return boarddoc.Document{}, false
	}

	var meta struct {
		Tags []string `json:"tags"`
	}
	if isKind(top["metadata"], '{') {
		_ = json.Unmarshal(top["metadata"], &meta)
	}
	return p.document(board, meta.Tags), true
}

func (p Parser) parseMulti(top map[string]json.RawMessage) ([]boarddoc.Document, bool) {
	if !hasVersion(top) || !isPresent(top["metadata"]) || !isKind(top["boards"], '[') {
		return nil, false
	}
	var entries []json.RawMessage
	if json.Unmarshal(top["boards"], &entries) != nil || len(entries) == 0 {
		return nil, false
	}

	docs := make([]boarddoc.Document, 0, len(entries))
	for _, raw := range entries {
		var entry map[string]json.RawMessage
		if !isKind(raw, '{') || json.Unmarshal(raw, &entry) != nil {
			return nil, false
		}
		if !isKind(entry["elements"], '[') || !isKind(entry["appState"], '{') {
			return nil, false
		}
		var tags []string
		if isKind(entry["tags"], '[') {
			_ = json.Unmarshal(entry["tags"], &tags)
		}
		docs = append(docs, p.document(entry, tags))
	}
	return docs, true
}

func (p Parser) document(board map[string]json.RawMessage, tags []string) boarddoc.Document {
	payload, _ := json.Marshal(map[string]json.RawMessage{
		"elements": board["elements"],
		"appState": board["appState"],
		"files":    board["files"],
	})
	data := boarddoc.DecodeData(payload)

	var name string
	_ = json.Unmarshal(board["name"], &name)
	if tags == nil {
		tags = []string{}
	}

	now := p.Now().UTC()
	return boarddoc.Document{
		ID:        p.NewID(),
		Name:      name,
		Elements:  data.Elements,
		AppState:  data.AppState,
		Files:     data.Files,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func hasVersion(top map[string]json.RawMessage) bool {
	var v string
	return json.Unmarshal(top["version"], &v) == nil && v != ""
}

func checkVersion(top map[string]json.RawMessage) error {
	var v string
	_ = json.Unmarshal(top["version"], &v)
	if v != Version {
		return fmt.Errorf("%w %q", ErrUnsupportedVersion, v)
	}
	return nil
}

// isPresent reports whether raw holds a JSON value that is not null, false,
// zero or an empty string.
func isPresent(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

func isKind(raw []byte, delim byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == delim
}
