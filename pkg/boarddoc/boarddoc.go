// Package boarddoc defines the persisted shape of a whiteboard document and the
// transformation between the nested wire/storage form and the flattened
// working form used by clients.
//
// Drawing elements, app state and embedded files are opaque JSON: they are
// stored and round-tripped but never interpreted.
package boarddoc

import (
	"bytes"
	"encoding/json"
	"time"
)

// Data is the nested document payload stored per board.
type Data struct {
	Elements []json.RawMessage         `json:"elements" binding:"required"`
	AppState map[string]json.RawMessage `json:"appState" binding:"required"`
	Files    map[string]json.RawMessage `json:"files,omitempty"`
}

// Metadata is the list-view projection of a board. It never carries Data.
type Metadata struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Thumbnail *string   `json:"thumbnail,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Board is the full wire representation returned by the API.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Data      Data      `json:"data"`
	Thumbnail *string   `json:"thumbnail,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Metadata returns the list projection of b.
func (b Board) Metadata() Metadata {
	return Metadata{
		ID:        b.ID,
		Name:      b.Name,
		Thumbnail: b.Thumbnail,
		Tags:      b.Tags,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// StoredBoard is a board as received from storage or the API before
// normalization; Data may be missing or partially shaped.
type StoredBoard struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	Thumbnail *string         `json:"thumbnail,omitempty"`
	Tags      []string        `json:"tags"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Document is the flattened working form a canvas is initialized from.
type Document struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Elements  []json.RawMessage          `json:"elements"`
	AppState  map[string]json.RawMessage `json:"appState"`
	Files     map[string]json.RawMessage `json:"files,omitempty"`
	Thumbnail *string                    `json:"thumbnail,omitempty"`
	Tags      []string                   `json:"tags,omitempty"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}

const (
	DefaultBackgroundColor = "#ffffff"
	DefaultFontFamily      = 1
)

// DefaultData is the payload of a freshly created, empty board.
func DefaultData() Data {
	return Data{
		Elements: []json.RawMessage{},
		AppState: map[string]json.RawMessage{
			"viewBackgroundColor":   json.RawMessage(`"` + DefaultBackgroundColor + `"`),
			"currentItemFontFamily": json.RawMessage(`1`),
		},
		Files: map[string]json.RawMessage{},
	}
}

// Normalize replaces nil collections with empty ones so the payload always
// serializes as {elements: [], appState: {}, files: {}}.
func (d Data) Normalize() Data {
	if d.Elements == nil {
		d.Elements = []json.RawMessage{}
	}
	if d.AppState == nil {
		d.AppState = map[string]json.RawMessage{}
	}
	if d.Files == nil {
		d.Files = map[string]json.RawMessage{}
	}
	return d
}

// IsEmpty reports whether the document has no drawing elements.
func (d Data) IsEmpty() bool { return len(d.Elements) == 0 }

// DecodeData parses a stored payload, defaulting every part that is missing
// or has the wrong JSON type. It never fails: unusable input yields an empty
// document.
func DecodeData(raw json.RawMessage) Data {
	var parts map[string]json.RawMessage
	if !isKind(raw, '{') || json.Unmarshal(raw, &parts) != nil {
		return Data{}.Normalize()
	}

	var d Data
	if v := parts["elements"]; isKind(v, '[') {
		_ = json.Unmarshal(v, &d.Elements)
	}
	if v := parts["appState"]; isKind(v, '{') {
		_ = json.Unmarshal(v, &d.AppState)
	}
	if v := parts["files"]; isKind(v, '{') {
		_ = json.Unmarshal(v, &d.Files)
	}
	return d.Normalize()
}

// ToWorking flattens a stored board into the working form.
func ToWorking(b StoredBoard) Document {
	d := DecodeData(b.Data)
	return Document{
		ID:        b.ID,
		Name:      b.Name,
		Elements:  d.Elements,
		AppState:  d.AppState,
		Files:     d.Files,
		Thumbnail: b.Thumbnail,
		Tags:      b.Tags,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// FromBoard flattens an already typed board.
func FromBoard(b Board) Document {
	d := b.Data.Normalize()
	return Document{
		ID:        b.ID,
		Name:      b.Name,
		Elements:  d.Elements,
		AppState:  d.AppState,
		Files:     d.Files,
		Thumbnail: b.Thumbnail,
		Tags:      b.Tags,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// ToWire builds the nested payload for persistence.
func ToWire(doc Document) Data {
	return Data{
		Elements: doc.Elements,
		AppState: doc.AppState,
		Files:    doc.Files,
	}.Normalize()
}

// isKind reports whether raw is a JSON value starting with the given
// delimiter ('{' for objects, '[' for arrays).
func isKind(raw json.RawMessage, delim byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == delim
}
