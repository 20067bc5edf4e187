package templates

import (
	"time"

	"github.com/maplify-tech/whiteboard/config"
)

type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithBoards(names []string) Option {
	return func(d *EmailData) {
		d.BoardNames = append([]string(nil), names...)
		d.BoardCount = len(names)
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,
		AppURL:      cfg.AppURL,
		SupportURL:  cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, name, email, opts...))
}

func NewImportSummaryData(cfg *config.Config, name, email string, boards []string, opts ...Option) map[string]any {
	opts = append([]Option{WithBoards(boards)}, opts...)
	return ToMap(NewBaseEmailData(cfg, name, email, opts...))
}
