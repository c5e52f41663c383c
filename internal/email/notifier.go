package email

import (
	"context"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/config"
	"github.com/brandon/onthisday/internal/progress"
	"github.com/brandon/onthisday/pkg/types"
)

// State is a stage of a retried digest job
type State string

const (
	Attempting        State = "attempting"
	WaitingToRetry    State = "waiting_to_retry"
	Succeeded         State = "succeeded"
	FailedPermanently State = "failed_permanently"
)

// PhotoFinder returns the photos taken on a date's month and day
type PhotoFinder interface {
	PhotosForDay(ctx context.Context, date time.Time) ([]types.Photo, error)
}

// Publisher receives digest progress events
type Publisher interface {
	Publish(ev progress.Event)
}

// Outcome is the final result of a retried digest job
type Outcome struct {
	State    State
	Attempts int
	Err      error
}

// Notifier composes and delivers the daily digest
type Notifier struct {
	config    *config.MailConfig
	transport Transport
	photos    PhotoFinder
	archiver  Archiver
	publisher Publisher
	logger    *logrus.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// NewNotifier creates a notifier delivering through transport
func NewNotifier(cfg *config.MailConfig, transport Transport, photos PhotoFinder, logger *logrus.Logger) *Notifier {
	return &Notifier{
		config:    cfg,
		transport: transport,
		photos:    photos,
		logger:    logger,
		now:       time.Now,
	}
}

// SetArchiver enables archiving of delivered digests
func (n *Notifier) SetArchiver(a Archiver) {
	n.archiver = a
}

// SetPublisher enables progress events for digest jobs
func (n *Notifier) SetPublisher(p Publisher) {
	n.publisher = p
}

// Compose builds the digest for photoCount photos
func (n *Notifier) Compose(photoCount int, viewingLink string) Message {
	subject := n.config.Subject
	if subject == "" {
		subject = config.DefaultSubject
	}
	return ComposeDigest(subject, photoCount, viewingLink)
}

// Send delivers a digest for photos. An empty selection sends nothing.
func (n *Notifier) Send(ctx context.Context, photos []types.Photo) error {
	if len(photos) == 0 {
		n.logger.Info("No photos for this day, skipping digest")
		return nil
	}

	msg := n.Compose(len(photos), n.config.ViewURL)
	raw, err := BuildMIME(n.config.From, n.config.To, msg, n.now())
	if err != nil {
		return &DeliveryError{Stage: "compose", Err: err}
	}

	if err := n.transport.Send(ctx, n.config.From, n.config.To, raw); err != nil {
		return &DeliveryError{Stage: "send", Err: err}
	}

	n.logger.WithFields(logrus.Fields{
		"photos":     len(photos),
		"recipients": len(n.config.To),
	}).Info("Digest delivered")

	if n.archiver != nil {
		if err := n.archiver.Archive(ctx, raw, n.now()); err != nil {
			n.logger.WithError(err).Warn("Failed to archive digest")
		}
	}
	return nil
}

// DeliverWithRetry fetches the photos for date and sends the digest. The whole
// job is repeated after RetryDelay while it fails with a transient error and
// the retry budget lasts.
func (n *Notifier) DeliverWithRetry(ctx context.Context, date time.Time) Outcome {
	remaining := n.config.RetryBudget
	if remaining < 0 {
		remaining = 0
	}

	log := n.logger.WithFields(logrus.Fields{
		"run":  uuid.NewString(),
		"date": date.Format("2006-01-02"),
	})

	attempts := 0
	err := retry.Do(
		func() error {
			attempts++
			n.transition(log.WithField("attempt", attempts), Attempting, attempts, nil)

			photos, err := n.photos.PhotosForDay(ctx, date)
			if err != nil {
				return err
			}
			return n.Send(ctx, photos)
		},
		retry.Attempts(uint(remaining+1)),
		retry.Delay(n.config.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return remaining > 0 && IsTransient(err)
		}),
		retry.OnRetry(func(_ uint, err error) {
			remaining--
			n.transition(log.WithFields(logrus.Fields{
				"attempt":   attempts,
				"remaining": remaining,
				"delay":     n.config.RetryDelay.String(),
			}), WaitingToRetry, attempts, err)
		}),
	)

	out := Outcome{State: Succeeded, Attempts: attempts}
	if err != nil {
		out.State = FailedPermanently
		out.Err = err
	}
	n.transition(log.WithField("attempts", attempts), out.State, attempts, err)
	return out
}

// SendWithRetry runs DeliverWithRetry in the background and returns at once.
// Only cancellation of ctx stops a pending retry.
func (n *Notifier) SendWithRetry(ctx context.Context, date time.Time) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.DeliverWithRetry(ctx, date)
	}()
}

// Wait blocks until every background digest job has finished
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) transition(log *logrus.Entry, state State, attempt int, err error) {
	entry := log.WithField("state", string(state))
	switch {
	case state == FailedPermanently:
		entry.WithError(err).Error("Digest failed")
	case err != nil:
		entry.WithError(err).Warn("Digest attempt failed, retrying")
	case state == Succeeded:
		entry.Info("Digest job finished")
	default:
		entry.Debug("Digest attempt started")
	}

	if n.publisher == nil {
		return
	}
	ev := progress.Event{
		Kind:    progress.KindDigest,
		Stage:   string(state),
		Current: attempt,
		Total:   n.config.RetryBudget + 1,
	}
	if err != nil {
		ev.Message = err.Error()
	}
	n.publisher.Publish(ev)
}
