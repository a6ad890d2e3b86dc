package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenpos/internal/config"
	"github.com/mamadbah2/kitchenpos/internal/domain/models"
	"github.com/mamadbah2/kitchenpos/internal/service/reporting"
	"github.com/mamadbah2/kitchenpos/internal/service/whatsapp"
)

const jobTimeout = 2 * time.Minute

// DailyReporter builds and archives the end-of-day report.
type DailyReporter interface {
	DailyReport(ctx context.Context, day time.Time) (models.DailyReport, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	schedule     string
	reportingSvc DailyReporter
	messagingSvc whatsapp.MessagingService
	managerID    string
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler creates a scheduler running in loc. messagingSvc may be nil,
// in which case reports are archived but not sent.
func NewScheduler(cfg config.ReportingConfig, managerID string, loc *time.Location, reportingSvc DailyReporter, messagingSvc whatsapp.MessagingService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		schedule:     cfg.CronSchedule,
		reportingSvc: reportingSvc,
		messagingSvc: messagingSvc,
		managerID:    managerID,
		logger:       logger,
		now:          time.Now,
	}
}

// Start registers the daily report job and starts the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sendDailyReport); err != nil {
		return fmt.Errorf("schedule daily report %q: %w", s.schedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) sendDailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.RunDailyReport(ctx); err != nil {
		s.logger.Error("daily report failed", zap.Error(err))
	}
}

// RunDailyReport builds today's report and sends it to the manager when one
// is configured.
func (s *Scheduler) RunDailyReport(ctx context.Context) error {
	s.logger.Info("generating daily report")

	report, err := s.reportingSvc.DailyReport(ctx, s.now())
	if err != nil {
		return fmt.Errorf("generate daily report: %w", err)
	}

	if s.messagingSvc == nil || s.managerID == "" {
		return nil
	}

	req := models.OutboundMessageRequest{
		To:      s.managerID,
		Message: reporting.FormatDailyReport(report),
	}
	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}

	s.logger.Info("daily report sent successfully")
	return nil
}
