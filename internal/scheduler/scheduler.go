// Package scheduler triggers the digest on a daily, weekly or monthly cadence.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/brandon/onthisday/internal/config"
)

// Job is started on every tick
type Job interface {
	SendWithRetry(ctx context.Context, date time.Time)
}

// Expression translates a cadence and an HH:MM time of day into a cron spec
func Expression(sendBy, at string) (string, error) {
	hour, minute, err := parseClock(at)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(sendBy) {
	case "day":
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case "week":
		return fmt.Sprintf("%d %d * * 1", minute, hour), nil
	case "month":
		return fmt.Sprintf("%d %d 1 * *", minute, hour), nil
	default:
		return "", fmt.Errorf("unknown cadence %q, expected day, week or month", sendBy)
	}
}

func parseClock(at string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(at), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", at)
	}
	return hour, minute, nil
}

// Scheduler runs Job on the configured cadence
type Scheduler struct {
	config *config.ScheduleConfig
	job    Job
	loc    *time.Location
	logger *logrus.Logger
	cron   *cron.Cron
	entry  cron.EntryID
	now    func() time.Time
}

// New creates a scheduler evaluating the cadence in loc (time.Local when nil)
func New(cfg *config.ScheduleConfig, job Job, loc *time.Location, logger *logrus.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		config: cfg,
		job:    job,
		loc:    loc,
		logger: logger,
		cron:   cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger})),
		now:    time.Now,
	}
}

// Start registers the digest job and starts the clock. It returns false when
// the schedule is missing or invalid, in which case nothing is scheduled.
// Jobs run with ctx, so cancelling it stops pending retries.
func (s *Scheduler) Start(ctx context.Context) bool {
	if s.config.SendBy == "" {
		s.logger.Info("SEND_BY not set, digest schedule disabled")
		return false
	}

	spec, err := Expression(s.config.SendBy, s.config.At)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"send_by": s.config.SendBy,
			"at":      s.config.At,
		}).Warn("Invalid digest schedule, scheduling skipped")
		return false
	}

	id, err := s.cron.AddFunc(spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		s.logger.WithError(err).WithField("cron", spec).Warn("Failed to schedule digest")
		return false
	}
	s.entry = id
	s.cron.Start()

	s.logger.WithFields(logrus.Fields{
		"cron": spec,
		"next": s.Next().Format(time.RFC3339),
	}).Info("Digest scheduled")
	return true
}

func (s *Scheduler) tick(ctx context.Context) {
	today := s.now().In(s.loc)
	s.logger.WithField("date", today.Format("2006-01-02")).Info("Scheduled digest triggered")
	s.job.SendWithRetry(ctx, today)
}

// Next returns the next scheduled run, or the zero time when nothing is scheduled
func (s *Scheduler) Next() time.Time {
	if s.entry == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// Stop stops the clock and waits for a running tick to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger routes cron's own logging through logrus
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			f[key] = keysAndValues[i+1]
		}
	}
	return f
}
