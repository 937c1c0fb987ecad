package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/milkweights/internal/config"
	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/service/reporting"
)

// Reporter is the part of the reporting service the monthly job needs.
type Reporter interface {
	Snapshot(ctx context.Context, year, month int) (models.ReportSnapshot, error)
	Summary(year, month int) (string, error)
}

// Sender pushes the monthly digest to a chat recipient.
type Sender interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron         *cron.Cron
	location     *time.Location
	reportingSvc Reporter
	messagingSvc Sender
	cfg          config.Config
	logger       *zap.Logger
	now          func() time.Time
}

// NewScheduler creates a new scheduler instance. messagingSvc may be nil, in
// which case digests are only logged.
func NewScheduler(cfg config.Config, reportingSvc Reporter, messagingSvc Sender, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Reporting.Timezone, err)
	}

	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		location:     loc,
		reportingSvc: reportingSvc,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Start registers the monthly report job and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.Reporting.CronSchedule, s.runMonthlyReport); err != nil {
		return fmt.Errorf("schedule monthly report %q: %w", s.cfg.Reporting.CronSchedule, err)
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.Reporting.CronSchedule), zap.String("timezone", s.location.String()))
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runMonthlyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.MonthlyReport(ctx); err != nil {
		s.logger.Error("monthly report failed", zap.Error(err))
	}
}

// MonthlyReport snapshots the previous calendar month and sends its digest
// to the configured recipient.
func (s *Scheduler) MonthlyReport(ctx context.Context) error {
	year, month := reporting.PreviousMonth(s.now().In(s.location))
	s.logger.Info("generating monthly report", zap.Int("year", year), zap.Int("month", month))

	_, err := s.reportingSvc.Snapshot(ctx, year, month)
	switch {
	case errors.Is(err, reporting.ErrSnapshotsDisabled):
		s.logger.Debug("snapshots disabled, skipping")
	case err != nil:
		return err
	}

	summary, err := s.reportingSvc.Summary(year, month)
	if err != nil {
		return err
	}

	recipient := s.cfg.WhatsApp.ReportRecipient
	if s.messagingSvc == nil || recipient == "" {
		s.logger.Info("monthly report generated", zap.String("summary", summary))
		return nil
	}

	req := models.OutboundMessageRequest{
		To:      recipient,
		Message: summary,
	}
	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		return fmt.Errorf("send monthly report: %w", err)
	}

	s.logger.Info("monthly report sent successfully", zap.String("to", recipient))
	return nil
}
