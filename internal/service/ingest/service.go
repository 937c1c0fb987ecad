// Package ingest owns the milk weight registry and serialises every write to it.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/ledger"
	"github.com/mamadbah2/milkweights/internal/parser"
	"github.com/mamadbah2/milkweights/internal/repository/sheets"
)

var (
	// ErrNotCSV indicates a file without a .csv extension.
	ErrNotCSV = errors.New("files must be of type .csv")
	// ErrInvalidEntry indicates a manual entry failed validation.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrSink indicates an accepted entry could not be forwarded to a sink.
	ErrSink = errors.New("record sink")
	// ErrSheetsDisabled is returned by IngestSheet when no spreadsheet is configured.
	ErrSheetsDisabled = errors.New("sheets integration disabled")
)

const (
	sourceFile   = "file"
	sourceSheet  = "sheet"
	sourceManual = "manual"

	parseConcurrency = 4
)

// Entry is a manual submission as typed by a user. Weight decodes from a JSON
// number or a numeric string.
type Entry struct {
	Date   string      `json:"date" binding:"required"`
	FarmID string      `json:"farm_id" binding:"required"`
	Weight json.Number `json:"weight" binding:"required"`
}

// Service guards a Registry for concurrent writers and readers.
type Service struct {
	mu       sync.RWMutex
	registry *ledger.Registry

	sheets      sheets.Repository
	sheetsRange string
	sinks       []RecordSink
	metrics     *Metrics
	logger      *zap.Logger
}

// NewService wraps registry. sheetsRepo may be nil; metrics defaults to
// unregistered collectors.
func NewService(registry *ledger.Registry, sheetsRepo sheets.Repository, sheetsRange string, metrics *Metrics, logger *zap.Logger, sinks ...RecordSink) *Service {
	if registry == nil {
		registry = ledger.NewRegistry()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:    registry,
		sheets:      sheetsRepo,
		sheetsRange: sheetsRange,
		sinks:       sinks,
		metrics:     metrics,
		logger:      logger,
	}
}

// View runs fn with read access to the registry. fn must not retain it.
func (s *Service) View(fn func(*ledger.Registry) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.registry)
}

// IngestReader parses a whole stream and commits it only if every line is valid.
func (s *Service) IngestReader(ctx context.Context, name string, r io.Reader) (int, error) {
	records, err := parser.New(r).ParseAll()
	if err != nil {
		s.metrics.failed(sourceFile)
		s.logger.Warn("rejected input", zap.String("source", name), zap.Error(err))
		return 0, fmt.Errorf("ingest %s: %w", name, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.commit(sourceFile, records)
	s.logger.Info("input ingested", zap.String("source", name), zap.Int("records", len(records)))
	return len(records), nil
}

// IngestPath ingests one .csv file from disk.
func (s *Service) IngestPath(ctx context.Context, path string) (int, error) {
	records, err := parseFile(path)
	if err != nil {
		s.metrics.failed(sourceFile)
		s.logger.Warn("rejected file", zap.String("path", path), zap.Error(err))
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.commit(sourceFile, records)
	s.logger.Info("file ingested", zap.String("path", path), zap.Int("records", len(records)))
	return len(records), nil
}

// IngestPaths parses files concurrently and commits the valid ones in argument
// order. A bad file is skipped on its own; all failures are joined in the
// returned error.
func (s *Service) IngestPaths(ctx context.Context, paths ...string) (int, error) {
	staged := make([][]models.Record, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			staged[i], errs[i] = parseFile(path)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	total := 0
	for i, records := range staged {
		if errs[i] != nil {
			s.metrics.failed(sourceFile)
			s.logger.Warn("rejected file", zap.String("path", paths[i]), zap.Error(errs[i]))
			continue
		}
		s.commit(sourceFile, records)
		total += len(records)
		s.logger.Info("file ingested", zap.String("path", paths[i]), zap.Int("records", len(records)))
	}

	return total, errors.Join(errs...)
}

// IngestSheet reads the configured range; the first row is a header.
func (s *Service) IngestSheet(ctx context.Context) (int, error) {
	if s.sheets == nil {
		return 0, ErrSheetsDisabled
	}

	rows, err := s.sheets.ReadRows(ctx, s.sheetsRange)
	if err != nil {
		s.metrics.failed(sourceSheet)
		return 0, fmt.Errorf("%w: %w", parser.ErrIO, err)
	}

	var records []models.Record
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rec, err := parser.ParseFields(row)
		if err != nil {
			var fe *parser.FormatError
			if errors.As(err, &fe) {
				fe.Line = i + 1
			}
			s.metrics.failed(sourceSheet)
			return 0, fmt.Errorf("ingest sheet %s: %w", s.sheetsRange, err)
		}
		records = append(records, rec)
	}

	s.commit(sourceSheet, records)
	s.logger.Info("sheet ingested", zap.String("range", s.sheetsRange), zap.Int("records", len(records)))
	return len(records), nil
}

// IngestEntry validates a manual entry, commits it, then forwards it to the
// sinks. A sink failure is reported with ErrSink but does not undo the commit.
func (s *Service) IngestEntry(ctx context.Context, entry Entry) (models.Record, error) {
	rec, err := ParseEntry(entry)
	if err != nil {
		s.metrics.failed(sourceManual)
		return models.Record{}, err
	}

	s.commit(sourceManual, []models.Record{rec})
	s.logger.Info("manual entry ingested", zap.String("farm_id", rec.FarmID()), zap.String("date", rec.DateString()), zap.Int("weight", rec.Weight()))

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Append(ctx, rec); err != nil {
			s.logger.Error("failed forwarding entry", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return rec, fmt.Errorf("%w: %w", ErrSink, errors.Join(errs...))
	}
	return rec, nil
}

// ParseEntry applies the manual entry rules: a real calendar month, a day
// inside that month, a farm id and an integer weight.
func ParseEntry(entry Entry) (models.Record, error) {
	parts := strings.Split(strings.TrimSpace(entry.Date), "-")
	if len(parts) != 3 {
		return models.Record{}, fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", ErrInvalidEntry)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return models.Record{}, fmt.Errorf("%w: date must be numeric", ErrInvalidEntry)
		}
		nums[i] = n
	}
	year, month, day := nums[0], nums[1], nums[2]

	if month < 1 || month > 12 {
		return models.Record{}, fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidEntry)
	}
	if day < 1 || day > daysIn(year, month) {
		return models.Record{}, fmt.Errorf("%w: day is not in valid range for month", ErrInvalidEntry)
	}

	farmID := strings.TrimSpace(entry.FarmID)
	if farmID == "" || strings.Contains(farmID, ",") {
		return models.Record{}, fmt.Errorf("%w: farm id must be non-empty and contain no comma", ErrInvalidEntry)
	}

	weight, err := strconv.Atoi(strings.TrimSpace(entry.Weight.String()))
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: weight must be an integer", ErrInvalidEntry)
	}

	return models.NewRecord(year, month, day, farmID, weight), nil
}

func (s *Service) commit(source string, records []models.Record) {
	s.mu.Lock()
	s.registry.IngestAll(records)
	farms := s.registry.FarmCount()
	s.mu.Unlock()

	s.metrics.committed(source, len(records), farms)
}

// daysIn returns the length of a 1-based month, leap years included.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseFile(path string) ([]models.Record, error) {
	if !isCSV(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotCSV, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", parser.ErrIO, path, err)
	}
	defer f.Close()

	records, err := parser.New(f).ParseAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
