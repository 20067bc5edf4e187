package boarddoc

import "encoding/json"

// InitialState is the subset of app state a canvas needs to re-initialize a
// board. Everything else in appState is carried opaquely.
type InitialState struct {
	ViewBackgroundColor   string          `json:"viewBackgroundColor"`
	CurrentItemFontFamily json.RawMessage `json:"currentItemFontFamily"`
	Theme                 json.RawMessage `json:"theme,omitempty"`
	Zoom                  json.RawMessage `json:"zoom,omitempty"`
	ScrollX               json.RawMessage `json:"scrollX,omitempty"`
	ScrollY               json.RawMessage `json:"scrollY,omitempty"`
}

// InitialAppState extracts the re-initialization subset, falling back to the
// default background color and font family when they are absent or falsy.
func InitialAppState(appState map[string]json.RawMessage) InitialState {
	s := InitialState{
		ViewBackgroundColor:   DefaultBackgroundColor,
		CurrentItemFontFamily: json.RawMessage(`1`),
	}

	var bg string
	if v, ok := appState["viewBackgroundColor"]; ok && json.Unmarshal(v, &bg) == nil && bg != "" {
		s.ViewBackgroundColor = bg
	}
	if v, ok := appState["currentItemFontFamily"]; ok && !isFalsy(v) {
		s.CurrentItemFontFamily = v
	}
	s.Theme = present(appState, "theme")
	s.Zoom = present(appState, "zoom")
	s.ScrollX = present(appState, "scrollX")
	s.ScrollY = present(appState, "scrollY")
	return s
}

func present(m map[string]json.RawMessage, key string) json.RawMessage {
	v, ok := m[key]
	if !ok || string(v) == "null" {
		return nil
	}
	return v
}

func isFalsy(v json.RawMessage) bool {
	switch string(v) {
	case "", "null", "0", "false", `""`:
		return true
	}
	return false
}
