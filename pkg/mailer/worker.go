package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/F1veStar3/postboard/pkg/mailer/templates"
)

var ErrBadJob = errors.New("bad email job")

// Worker turns queued EmailJobs into sent mail.
type Worker struct {
	Sender      Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func NewWorker(sender Sender, logger *logrus.Logger) *Worker {
	return &Worker{Sender: sender, Logger: logger, SendTimeout: 15 * time.Second}
}

// Prepare decodes a job and renders its template if it names one.
func Prepare(body []byte) (EmailJob, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return job, fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	job.To = strings.TrimSpace(job.To)
	if job.To == "" {
		return job, fmt.Errorf("%w: missing recipient", ErrBadJob)
	}
	if job.Template != "" {
		subject, text, html, err := templates.Render(job.Template, job.Data)
		if err != nil {
			return job, fmt.Errorf("%w: %v", ErrBadJob, err)
		}
		job.Subject, job.Text, job.HTML = subject, text, html
	}
	if job.Subject == "" || (job.Text == "" && job.HTML == "") {
		return job, fmt.Errorf("%w: empty message", ErrBadJob)
	}
	return job, nil
}

// Handle processes one delivery. Bad jobs are dropped; a failed send is
// requeued once and dropped on the second failure.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	job, err := Prepare(d.Body)
	if err != nil {
		w.Logger.WithError(err).Warn("dropping email job")
		_ = d.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, w.SendTimeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, job.Subject, job.Text, job.HTML); err != nil {
		requeue := !d.Redelivered
		w.Logger.WithError(err).WithFields(logrus.Fields{"to": job.To, "requeue": requeue}).Warn("send failed")
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
	w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.Handle(ctx, d)
		}
	}
}
