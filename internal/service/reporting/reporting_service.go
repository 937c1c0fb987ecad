package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/ledger"
	"github.com/mamadbah2/milkweights/internal/repository/mongodb"
)

var (
	// ErrFarmNotFound is returned by farm reports for an unknown farm id.
	ErrFarmNotFound = errors.New("farm not found")
	// ErrInvalidMonth is returned for months outside 1-12.
	ErrInvalidMonth = errors.New("month must be between 1 and 12")
	// ErrInvalidQuery is returned when a month is given without a year.
	ErrInvalidQuery = errors.New("month requires a year")
	// ErrSnapshotsDisabled is returned by Snapshot when no repository is wired.
	ErrSnapshotsDisabled = errors.New("report snapshots disabled")
)

// RegistryViewer grants read access to the registry.
type RegistryViewer interface {
	View(fn func(*ledger.Registry) error) error
}

// Query selects a sum. Zero values mean "any": no farm sums every farm, no
// year sums every year. Year 0 is therefore not addressable on its own; its
// records only count towards the all-years sums. Month is 1-based and needs
// a year.
type Query struct {
	FarmID string
	Year   int
	Month  int
}

// Service answers weight queries and builds chart-ready reports. Months in
// its API are 1-based.
type Service struct {
	store     RegistryViewer
	snapshots mongodb.Repository
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a new reporting service instance. snapshots may be nil.
func NewService(store RegistryViewer, snapshots mongodb.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, snapshots: snapshots, logger: logger, now: time.Now}
}

// Sum resolves q to the matching registry sum.
func (s *Service) Sum(q Query) (int, error) {
	if q.Month != 0 && q.Year == 0 {
		return 0, ErrInvalidQuery
	}
	month, err := monthIndex(q.Month)
	if err != nil && q.Month != 0 {
		return 0, err
	}

	var total int
	err = s.store.View(func(r *ledger.Registry) error {
		var err error
		switch {
		case q.FarmID == "" && q.Year == 0:
			total = r.SumAll()
		case q.FarmID == "" && q.Month == 0:
			total = r.SumYearAcrossFarms(q.Year)
		case q.FarmID == "":
			total, err = r.SumMonthAcrossFarms(q.Year, month)
		case q.Year == 0:
			total = r.SumFarm(q.FarmID)
		case q.Month == 0:
			total = r.SumFarmYear(q.FarmID, q.Year)
		default:
			total, err = r.SumFarmMonth(q.FarmID, q.Year, month)
		}
		return err
	})
	return total, err
}

// FarmYearReport charts one farm's twelve months of a year.
func (s *Service) FarmYearReport(farmID string, year int) (models.Report, error) {
	report := models.Report{Title: fmt.Sprintf("%s %d", farmID, year), Year: year}

	err := s.store.View(func(r *ledger.Registry) error {
		farm, ok := r.Farm(farmID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrFarmNotFound, farmID)
		}
		series := yearSeries(farm, year)
		report.Series = []models.Series{series}
		report.Total = seriesTotal(series)
		return nil
	})
	return report, err
}

// FarmMonthReport charts a single farm-month as one bar.
func (s *Service) FarmMonthReport(farmID string, year, month int) (models.Report, error) {
	idx, err := monthIndex(month)
	if err != nil {
		return models.Report{}, err
	}
	name, _ := ledger.MonthName(idx)
	report := models.Report{Title: fmt.Sprintf("%s %s %d", farmID, name, year), Year: year, Month: month}

	err = s.store.View(func(r *ledger.Registry) error {
		farm, ok := r.Farm(farmID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrFarmNotFound, farmID)
		}
		weight := monthWeight(farm, year, idx)
		report.Series = []models.Series{{Name: farmID, Bars: []models.Bar{{Label: name, Weight: weight}}}}
		report.Total = weight
		return nil
	})
	return report, err
}

// CollectionYearReport charts every farm's twelve months of a year, one
// series per farm in first-seen order.
func (s *Service) CollectionYearReport(year int) (models.Report, error) {
	report := models.Report{Title: fmt.Sprintf("All farms %d", year), Year: year}

	err := s.store.View(func(r *ledger.Registry) error {
		for _, farm := range r.Farms() {
			series := yearSeries(farm, year)
			report.Series = append(report.Series, series)
			report.Total += seriesTotal(series)
		}
		return nil
	})
	return report, err
}

// CollectionMonthReport charts one month with a bar per farm.
func (s *Service) CollectionMonthReport(year, month int) (models.Report, error) {
	idx, err := monthIndex(month)
	if err != nil {
		return models.Report{}, err
	}
	name, _ := ledger.MonthName(idx)
	series := models.Series{Name: fmt.Sprintf("%s %d", name, year)}
	report := models.Report{Title: series.Name, Year: year, Month: month}

	err = s.store.View(func(r *ledger.Registry) error {
		for _, farm := range r.Farms() {
			series.Bars = append(series.Bars, models.Bar{Label: farm.FarmID(), Weight: monthWeight(farm, year, idx)})
		}
		return nil
	})
	if err != nil {
		return models.Report{}, err
	}

	report.Series = []models.Series{series}
	report.Total = seriesTotal(series)
	return report, nil
}

// Summary renders the month report as a short text digest.
func (s *Service) Summary(year, month int) (string, error) {
	report, err := s.CollectionMonthReport(year, month)
	if err != nil {
		return "", err
	}
	return FormatReport(report), nil
}

// Snapshot stores the month report in the snapshot repository.
func (s *Service) Snapshot(ctx context.Context, year, month int) (models.ReportSnapshot, error) {
	if s.snapshots == nil {
		return models.ReportSnapshot{}, ErrSnapshotsDisabled
	}

	report, err := s.CollectionMonthReport(year, month)
	if err != nil {
		return models.ReportSnapshot{}, err
	}

	var farms int
	if len(report.Series) > 0 {
		farms = len(report.Series[0].Bars)
	}
	snapshot := models.ReportSnapshot{
		Year:      year,
		Month:     month,
		Report:    report,
		Farms:     farms,
		CreatedAt: s.now().UTC(),
	}
	if err := s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return models.ReportSnapshot{}, fmt.Errorf("save snapshot %d-%02d: %w", year, month, err)
	}

	s.logger.Info("report snapshot stored", zap.Int("year", year), zap.Int("month", month), zap.Int("total", report.Total))
	return snapshot, nil
}

// LatestSnapshot returns the most recent stored report for year and 1-based
// month. A period never snapshotted yields mongodb.ErrSnapshotNotFound.
func (s *Service) LatestSnapshot(ctx context.Context, year, month int) (models.ReportSnapshot, error) {
	if s.snapshots == nil {
		return models.ReportSnapshot{}, ErrSnapshotsDisabled
	}
	if _, err := monthIndex(month); err != nil {
		return models.ReportSnapshot{}, err
	}

	snapshot, err := s.snapshots.LatestSnapshot(ctx, year, month)
	if err != nil {
		return models.ReportSnapshot{}, fmt.Errorf("load snapshot %d-%02d: %w", year, month, err)
	}
	return snapshot, nil
}

// FormatReport renders a report as plain text, one line per bar.
func FormatReport(report models.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Milk report %s: total %d.", report.Title, report.Total)
	for _, series := range report.Series {
		multi := len(report.Series) > 1
		if multi {
			fmt.Fprintf(&b, "\n%s:", series.Name)
		}
		if len(series.Bars) == 0 {
			b.WriteString("\n- no farms yet")
		}
		for _, bar := range series.Bars {
			indent := ""
			if multi {
				indent = "  "
			}
			fmt.Fprintf(&b, "\n%s- %s: %d", indent, bar.Label, bar.Weight)
		}
	}
	return b.String()
}

// PreviousMonth returns the year and 1-based month before t.
func PreviousMonth(t time.Time) (int, int) {
	prev := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}

func monthIndex(month int) (int, error) {
	if month < 1 || month > ledger.MonthsPerYear {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	return month - 1, nil
}

func yearSeries(farm *ledger.FarmLedger, year int) models.Series {
	var sums [ledger.MonthsPerYear]int
	if bucket, ok := farm.FindYear(year); ok {
		sums = bucket.MonthlySums()
	}

	series := models.Series{Name: farm.FarmID(), Bars: make([]models.Bar, 0, ledger.MonthsPerYear)}
	for m, sum := range sums {
		name, _ := ledger.MonthName(m)
		series.Bars = append(series.Bars, models.Bar{Label: name, Weight: sum})
	}
	return series
}

func monthWeight(farm *ledger.FarmLedger, year, month int) int {
	bucket, ok := farm.FindYear(year)
	if !ok {
		return 0
	}
	sum, _ := bucket.SumOfMonth(month)
	return sum
}

func seriesTotal(series models.Series) int {
	total := 0
	for _, bar := range series.Bars {
		total += bar.Weight
	}
	return total
}
