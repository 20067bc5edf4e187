package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/maplify-tech/whiteboard/config"
	"github.com/maplify-tech/whiteboard/internal/domain/entity"
	"github.com/maplify-tech/whiteboard/pkg/mailer"
	mailtpl "github.com/maplify-tech/whiteboard/pkg/mailer/templates"
)

// JobPublisher enqueues a JSON job for a background worker.
type JobPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// Notifier enqueues transactional emails. Enqueue failures are logged and
// never surface to the caller. A nil Notifier is valid and sends nothing.
type Notifier struct {
	Pub    JobPublisher
	Cfg    *config.Config
	Logger *logrus.Logger
	Now    func() time.Time
}

func NewNotifier(pub JobPublisher, cfg *config.Config, logger *logrus.Logger) *Notifier {
	return &Notifier{Pub: pub, Cfg: cfg, Logger: logger, Now: time.Now}
}

func (n *Notifier) Welcome(ctx context.Context, u *entity.User) {
	if n == nil || n.Pub == nil {
		return
	}
	data := mailtpl.NewWelcomeData(n.Cfg, u.Name, u.Email)
	n.publish(ctx, mailer.NewTemplateJob(u.Email, mailtpl.Welcome, data), u.ID)
}

func (n *Notifier) ImportSummary(ctx context.Context, u *entity.User, boardNames []string) {
	if n == nil || n.Pub == nil || len(boardNames) == 0 {
		return
	}
	data := mailtpl.NewImportSummaryData(n.Cfg, u.Name, u.Email, boardNames, mailtpl.WithTime(n.Now()))
	n.publish(ctx, mailer.NewTemplateJob(u.Email, mailtpl.ImportSummary, data), u.ID)
}

func (n *Notifier) publish(ctx context.Context, job mailer.EmailJob, userID string) {
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := n.Pub.PublishJSON(c, job); err != nil && n.Logger != nil {
		n.Logger.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"template": job.Template,
		}).Warn("enqueue email failed")
	}
}
