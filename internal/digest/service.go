package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/darsbot/darsbot/internal/channel"
	"github.com/darsbot/darsbot/internal/school"
)

// Store provides the counts and recipients the digest is built from.
type Store interface {
	Curators(ctx context.Context) ([]school.Person, error)
	CountSubmissionsOn(ctx context.Context, day time.Time) (int64, error)
}

// Sender delivers the digest text to a recipient identity.
type Sender interface {
	SendText(ctx context.Context, identity, text string, kb *channel.Keyboard) error
}

// Service sends every curator a daily summary of submission activity on a
// cron schedule.
type Service struct {
	store    Store
	sender   Sender
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates the digest scheduler. The schedule is a standard
// five-field cron expression.
func NewService(log *slog.Logger, store Store, sender Sender, schedule string) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		sender:   sender,
		schedule: schedule,
		logger:   log.With(slog.String("service", "digest")),
		now:      time.Now,
	}
}

// Start registers the digest job and begins the scheduler. It returns an
// error if the schedule expression does not parse.
func (s *Service) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Run(ctx); err != nil {
			s.logger.Error("digest run failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("register digest job: %w", err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("digest scheduled", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Service) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Run builds today's digest and sends it to every curator. Delivery failures
// are logged per recipient; one unreachable curator does not block the rest.
func (s *Service) Run(ctx context.Context) error {
	day := s.now().UTC()
	count, err := s.store.CountSubmissionsOn(ctx, day)
	if err != nil {
		return fmt.Errorf("count submissions: %w", err)
	}
	curators, err := s.store.Curators(ctx)
	if err != nil {
		return fmt.Errorf("list curators: %w", err)
	}
	text := summary(day, count)
	for _, curator := range curators {
		if err := s.sender.SendText(ctx, curator.Identity, text, nil); err != nil {
			s.logger.Warn("digest delivery failed",
				slog.String("identity", curator.Identity), slog.Any("error", err))
		}
	}
	s.logger.Info("digest sent",
		slog.Int("recipients", len(curators)), slog.Int64("submissions", count))
	return nil
}

func summary(day time.Time, count int64) string {
	date := day.Format("2006-01-02")
	if count == 0 {
		return fmt.Sprintf("Daily summary for %s: no task videos were submitted today.", date)
	}
	return fmt.Sprintf("Daily summary for %s: %d task video(s) submitted today.", date, count)
}
