package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/milkweights/internal/config"
	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/service/reporting"
)

type fakeReporter struct {
	snapshotErr error
	summaryErr  error
	snapshots   [][2]int
	summaries   [][2]int
}

func (f *fakeReporter) Snapshot(_ context.Context, year, month int) (models.ReportSnapshot, error) {
	f.snapshots = append(f.snapshots, [2]int{year, month})
	if f.snapshotErr != nil {
		return models.ReportSnapshot{}, f.snapshotErr
	}
	return models.ReportSnapshot{Year: year, Month: month}, nil
}

func (f *fakeReporter) Summary(year, month int) (string, error) {
	f.summaries = append(f.summaries, [2]int{year, month})
	if f.summaryErr != nil {
		return "", f.summaryErr
	}
	return "Milk report 2020-01: total 30.", nil
}

type fakeSender struct {
	sent []models.OutboundMessageRequest
	err  error
}

func (f *fakeSender) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

func newTestScheduler(t *testing.T, reporter Reporter, sender Sender, recipient string) *Scheduler {
	t.Helper()
	cfg := config.Config{
		Reporting: config.ReportingConfig{CronSchedule: "0 6 1 * *", Timezone: "UTC"},
		WhatsApp:  config.WhatsAppConfig{ReportRecipient: recipient},
	}
	s, err := NewScheduler(cfg, reporter, sender, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.now = func() time.Time { return time.Date(2020, time.February, 1, 6, 0, 0, 0, time.UTC) }
	return s
}

func TestMonthlyReportSnapshotsAndSends(t *testing.T) {
	reporter := &fakeReporter{}
	sender := &fakeSender{}
	s := newTestScheduler(t, reporter, sender, "22100")

	if err := s.MonthlyReport(context.Background()); err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}

	if len(reporter.snapshots) != 1 || reporter.snapshots[0] != [2]int{2020, 1} {
		t.Fatalf("snapshots = %v, want [[2020 1]]", reporter.snapshots)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if sender.sent[0].To != "22100" || sender.sent[0].Message != "Milk report 2020-01: total 30." {
		t.Fatalf("unexpected message %+v", sender.sent[0])
	}
}

func TestMonthlyReportRollsBackOverYearBoundary(t *testing.T) {
	reporter := &fakeReporter{}
	s := newTestScheduler(t, reporter, nil, "")
	s.now = func() time.Time { return time.Date(2021, time.January, 1, 6, 0, 0, 0, time.UTC) }

	if err := s.MonthlyReport(context.Background()); err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}
	if reporter.summaries[0] != [2]int{2020, 12} {
		t.Fatalf("summary for %v, want [2020 12]", reporter.summaries[0])
	}
}

func TestMonthlyReportSkipsDisabledSnapshots(t *testing.T) {
	reporter := &fakeReporter{snapshotErr: reporting.ErrSnapshotsDisabled}
	sender := &fakeSender{}
	s := newTestScheduler(t, reporter, sender, "22100")

	if err := s.MonthlyReport(context.Background()); err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("digest should still be sent, got %d messages", len(sender.sent))
	}
}

func TestMonthlyReportWithoutRecipientDoesNotSend(t *testing.T) {
	sender := &fakeSender{}
	s := newTestScheduler(t, &fakeReporter{}, sender, "")

	if err := s.MonthlyReport(context.Background()); err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d messages, want none", len(sender.sent))
	}
}

func TestMonthlyReportErrors(t *testing.T) {
	boom := errors.New("boom")

	s := newTestScheduler(t, &fakeReporter{snapshotErr: boom}, &fakeSender{}, "22100")
	if err := s.MonthlyReport(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("snapshot error = %v, want boom", err)
	}

	s = newTestScheduler(t, &fakeReporter{}, &fakeSender{err: boom}, "22100")
	if err := s.MonthlyReport(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("send error = %v, want boom", err)
	}
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	cfg := config.Config{Reporting: config.ReportingConfig{CronSchedule: "0 6 1 * *", Timezone: "Nowhere/Atlantis"}}
	if _, err := NewScheduler(cfg, &fakeReporter{}, nil, nil); err == nil {
		t.Fatal("expected timezone error")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := newTestScheduler(t, &fakeReporter{}, nil, "")
	s.cfg.Reporting.CronSchedule = "not a schedule"
	if err := s.Start(); err == nil {
		t.Fatal("expected schedule error")
	}
}
