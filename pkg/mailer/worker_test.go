package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplify-tech/whiteboard/config"
	mailtpl "github.com/maplify-tech/whiteboard/pkg/mailer/templates"
)

type sentMail struct {
	To, Subject, Text, HTML string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, text, html})
	return nil
}

func testConfig() *config.Config {
	return &config.Config{CompanyName: "Maplify Tech", AppName: "maplify-whiteboard", AppURL: "http://localhost:5173"}
}

func encodeJob(t *testing.T, job EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestWorker_WelcomeTemplate(t *testing.T) {
	s := &fakeSender{}
	w := NewWorker(s, nil)
	job := NewTemplateJob("ada@example.com", mailtpl.Welcome, mailtpl.NewWelcomeData(testConfig(), "Ada", "ada@example.com"))

	require.NoError(t, w.Handle(context.Background(), encodeJob(t, job)))

	require.Len(t, s.sent, 1)
	got := s.sent[0]
	assert.Equal(t, "ada@example.com", got.To)
	assert.Equal(t, "Welcome to Maplify Tech", got.Subject)
	assert.Contains(t, got.Text, "Hi Ada,")
	assert.Contains(t, got.Text, "http://localhost:5173")
	assert.Contains(t, got.HTML, `href="http://localhost:5173"`)
}

func TestWorker_ImportSummaryPluralizes(t *testing.T) {
	s := &fakeSender{}
	w := NewWorker(s, nil)

	one := NewTemplateJob("a@example.com", mailtpl.ImportSummary, mailtpl.NewImportSummaryData(testConfig(), "", "a@example.com", []string{"Roadmap"}))
	two := NewTemplateJob("a@example.com", mailtpl.ImportSummary, mailtpl.NewImportSummaryData(testConfig(), "", "a@example.com", []string{"Roadmap", "Retro"}))
	require.NoError(t, w.Handle(context.Background(), encodeJob(t, one)))
	require.NoError(t, w.Handle(context.Background(), encodeJob(t, two)))

	require.Len(t, s.sent, 2)
	assert.Equal(t, "1 board imported", s.sent[0].Subject)
	assert.Equal(t, "2 boards imported", s.sent[1].Subject)
	assert.Contains(t, s.sent[1].Text, "- Retro")
	assert.Contains(t, s.sent[0].Text, "Hi a@example.com,")
}

func TestWorker_PlainJob(t *testing.T) {
	s := &fakeSender{}
	job := EmailJob{To: "x@example.com", Subject: "Hello", Text: "body"}

	require.NoError(t, NewWorker(s, nil).Handle(context.Background(), encodeJob(t, job)))
	assert.Equal(t, sentMail{"x@example.com", "Hello", "body", ""}, s.sent[0])
}

func TestWorker_PermanentFailures(t *testing.T) {
	w := NewWorker(&fakeSender{}, nil)
	cases := map[string][]byte{
		"garbage":          []byte("{nope"),
		"no recipient":     []byte(`{"subject":"x","text":"y"}`),
		"no body":          []byte(`{"to":"a@b.c","subject":"x"}`),
		"unknown template": []byte(`{"to":"a@b.c","template":"login_otp"}`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			err := w.Handle(context.Background(), body)
			assert.ErrorIs(t, err, ErrPermanent)
		})
	}
}

func TestWorker_SendFailureIsRetryable(t *testing.T) {
	w := NewWorker(&fakeSender{err: errors.New("503")}, nil)

	err := w.Handle(context.Background(), []byte(`{"to":"a@b.c","subject":"x","text":"y"}`))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermanent)
}
