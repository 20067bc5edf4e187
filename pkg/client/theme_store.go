package client

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

type ThemeState struct {
	Theme     Theme
	Effective Theme // light or dark
}

// ThemeStore resolves the chosen theme against the system preference.
type ThemeStore struct {
	settings SettingsStore
	system   func() Theme
	logger   *logrus.Logger
	state    *observable[ThemeState]
}

// NewThemeStore starts from the persisted theme. system reports the OS
// preference; nil means light.
func NewThemeStore(settings SettingsStore, system func() Theme, logger *logrus.Logger) *ThemeStore {
	if system == nil {
		system = func() Theme { return ThemeLight }
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	theme := ThemeAuto
	if settings != nil {
		if s, err := settings.Load(); err == nil && s.Theme.Valid() {
			theme = s.Theme
		}
	}
	t := &ThemeStore{settings: settings, system: system, logger: logger}
	t.state = newObservable(ThemeState{Theme: theme, Effective: t.resolve(theme)})
	return t
}

func (t *ThemeStore) State() ThemeState { return t.state.get() }

func (t *ThemeStore) Subscribe(fn func(ThemeState)) func() { return t.state.subscribe(fn) }

func (t *ThemeStore) SetTheme(theme Theme) error {
	if !theme.Valid() {
		return fmt.Errorf("unknown theme %q", theme)
	}
	t.state.update(func(st *ThemeState) {
		st.Theme, st.Effective = theme, t.resolve(theme)
	})
	if err := updateSettings(t.settings, func(s *Settings) { s.Theme = theme }); err != nil {
		t.logger.WithError(err).Warn("persist theme failed")
	}
	return nil
}

// SystemChanged re-resolves the effective theme after the OS preference
// changed. It only has an effect in auto mode.
func (t *ThemeStore) SystemChanged() {
	if t.state.get().Theme != ThemeAuto {
		return
	}
	t.state.update(func(st *ThemeState) { st.Effective = t.resolve(st.Theme) })
}

func (t *ThemeStore) resolve(theme Theme) Theme {
	if theme == ThemeAuto {
		if t.system() == ThemeDark {
			return ThemeDark
		}
		return ThemeLight
	}
	return theme
}
