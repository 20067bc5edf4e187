// Package boardfile encodes and parses the portable board export format.
//
// Two envelopes exist: a single-board file and a multi-board backup. Both
// carry a mandatory version string and a metadata object.
package boardfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/maplify-tech/whiteboard/pkg/boarddoc"
)

const (
	Version = "1.0"
	Creator = "Maplify Tech v1.0"
)

var (
	ErrInvalidFormat      = errors.New("invalid board file format")
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrInvalidFormat)
)

type singleFile struct {
	Version  string         `json:"version"`
	Board    fileBoard      `json:"board"`
	Metadata singleMetadata `json:"metadata"`
}

type fileBoard struct {
	ID       string                     `json:"id"`
	Name     string                     `json:"name"`
	Elements []json.RawMessage          `json:"elements"`
	AppState map[string]json.RawMessage `json:"appState"`
	Files    map[string]json.RawMessage `json:"files,omitempty"`
}

type singleMetadata struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Creator   string    `json:"creator"`
	Tags      []string  `json:"tags,omitempty"`
}

type multiFile struct {
	Version  string        `json:"version"`
	Boards   []multiEntry  `json:"boards"`
	Metadata multiMetadata `json:"metadata"`
}

type multiEntry struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Elements  []json.RawMessage          `json:"elements"`
	AppState  map[string]json.RawMessage `json:"appState"`
	Files     map[string]json.RawMessage `json:"files,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Tags      []string                   `json:"tags,omitempty"`
}

type multiMetadata struct {
	ExportedAt  time.Time `json:"exportedAt"`
	Creator     string    `json:"creator"`
	TotalBoards int       `json:"totalBoards"`
}

// EncodeBoard renders doc as an indented single-board file.
func EncodeBoard(doc boarddoc.Document) ([]byte, error) {
	f := singleFile{
		Version: Version,
		Board: fileBoard{
			ID:       doc.ID,
			Name:     doc.Name,
			Elements: nonNilElements(doc.Elements),
			AppState: nonNilMap(doc.AppState),
			Files:    doc.Files,
		},
		Metadata: singleMetadata{
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
			Creator:   Creator,
			Tags:      doc.Tags,
		},
	}
	return json.MarshalIndent(f, "", "  ")
}

// EncodeBoards renders docs as an indented multi-board backup stamped with now.
func EncodeBoards(docs []boarddoc.Document, now time.Time) ([]byte, error) {
	f := multiFile{
		Version: Version,
		Boards:  make([]multiEntry, 0, len(docs)),
		Metadata: multiMetadata{
			ExportedAt:  now.UTC(),
			Creator:     Creator,
			TotalBoards: len(docs),
		},
	}
	for _, d := range docs {
		f.Boards = append(f.Boards, multiEntry{
			ID:        d.ID,
			Name:      d.Name,
			Elements:  nonNilElements(d.Elements),
			AppState:  nonNilMap(d.AppState),
			Files:     d.Files,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
			Tags:      d.Tags,
		})
	}
	return json.MarshalIndent(f, "", "  ")
}

// FileName is the download name of a single-board export.
func FileName(boardName string) string {
	name := strings.TrimSpace(boardName)
	if name == "" {
		name = "board"
	}
	return strings.NewReplacer("/", "-", "\\", "-", "\"", "'").Replace(name) + ".json"
}

// BackupFileName is the download name of a multi-board backup.
func BackupFileName(now time.Time) string {
	return "maplify-backup-" + now.UTC().Format("2006-01-02") + ".json"
}

func nonNilElements(e []json.RawMessage) []json.RawMessage {
	if e == nil {
		return []json.RawMessage{}
	}
	return e
}

func nonNilMap(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return map[string]json.RawMessage{}
	}
	return m
}
