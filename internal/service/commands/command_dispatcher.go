package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/service/ingest"
	"github.com/mamadbah2/milkweights/internal/service/reporting"
)

// ErrInvalidArguments indicates the command payload could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// HelpText lists the supported commands.
const HelpText = "Commands:\n" +
	"/milk YYYY-MM-DD farm weight - record a weight\n" +
	"/total [farm] [year [month]] - sum weights\n" +
	"/report year [month] - totals per farm"

// EntryIngester accepts manual entries.
type EntryIngester interface {
	IngestEntry(ctx context.Context, entry ingest.Entry) (models.Record, error)
}

// Reporter answers sums and month reports.
type Reporter interface {
	Sum(q reporting.Query) (int, error)
	CollectionYearReport(year int) (models.Report, error)
	CollectionMonthReport(year, month int) (models.Report, error)
}

// Dispatcher executes parsed commands and returns the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	ingester  EntryIngester
	reporting Reporter
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(ingester EntryIngester, reporter Reporter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ingester:  ingester,
		reporting: reporter,
		logger:    logger,
	}
}

// HandleCommand runs cmd. Validation problems come back wrapped in
// ErrInvalidArguments so callers can reply with usage help.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandMilk:
		return s.handleMilk(ctx, cmd)
	case models.CommandTotal:
		return s.handleTotal(cmd)
	case models.CommandReport:
		return s.handleReport(cmd)
	case models.CommandHelp:
		return HelpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) handleMilk(ctx context.Context, cmd models.Command) (string, error) {
	if len(cmd.Args) != 3 {
		return "", ErrInvalidArguments
	}

	entry := ingest.Entry{Date: cmd.Args[0], FarmID: cmd.Args[1], Weight: json.Number(cmd.Args[2])}
	record, err := s.ingester.IngestEntry(ctx, entry)
	switch {
	case errors.Is(err, ingest.ErrInvalidEntry):
		return "", fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	case errors.Is(err, ingest.ErrSink):
		s.logger.Warn("entry recorded but not archived", zap.Error(err))
	case err != nil:
		return "", err
	}

	return fmt.Sprintf("Recorded %d for %s on %s.", record.Weight(), record.FarmID(), record.DateString()), nil
}

func (s *Service) handleTotal(cmd models.Command) (string, error) {
	q, err := parseQuery(cmd.Args)
	if err != nil {
		return "", err
	}

	total, err := s.reporting.Sum(q)
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidMonth) || errors.Is(err, reporting.ErrInvalidQuery) {
			return "", fmt.Errorf("%w: %w", ErrInvalidArguments, err)
		}
		return "", err
	}

	return fmt.Sprintf("Total %s: %d.", describe(q), total), nil
}

func (s *Service) handleReport(cmd models.Command) (string, error) {
	if len(cmd.Args) == 0 || len(cmd.Args) > 2 {
		return "", ErrInvalidArguments
	}

	year, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return "", ErrInvalidArguments
	}

	var report models.Report
	if len(cmd.Args) == 2 {
		month, convErr := strconv.Atoi(cmd.Args[1])
		if convErr != nil {
			return "", ErrInvalidArguments
		}
		report, err = s.reporting.CollectionMonthReport(year, month)
	} else {
		report, err = s.reporting.CollectionYearReport(year)
		report = yearTotalsPerFarm(report)
	}
	if errors.Is(err, reporting.ErrInvalidMonth) {
		return "", fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	if err != nil {
		return "", err
	}

	return reporting.FormatReport(report), nil
}

// parseQuery reads [farm] [year [month]]. A leading non-numeric token is the farm.
func parseQuery(args []string) (reporting.Query, error) {
	var q reporting.Query
	if len(args) > 0 {
		if _, err := strconv.Atoi(args[0]); err != nil {
			q.FarmID = args[0]
			args = args[1:]
		}
	}
	if len(args) > 2 {
		return q, ErrInvalidArguments
	}

	nums := make([]int, len(args))
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return q, ErrInvalidArguments
		}
		nums[i] = n
	}
	if len(nums) > 0 {
		q.Year = nums[0]
	}
	if len(nums) > 1 {
		q.Month = nums[1]
	}
	return q, nil
}

func describe(q reporting.Query) string {
	parts := []string{"all farms"}
	if q.FarmID != "" {
		parts[0] = q.FarmID
	}
	if q.Year != 0 {
		if q.Month != 0 {
			parts = append(parts, fmt.Sprintf("%d-%02d", q.Year, q.Month))
		} else {
			parts = append(parts, strconv.Itoa(q.Year))
		}
	}
	return strings.Join(parts, " ")
}

// yearTotalsPerFarm collapses a per-farm 12-month report into one bar per
// farm, which reads better in a chat message.
func yearTotalsPerFarm(report models.Report) models.Report {
	collapsed := models.Series{Name: report.Title}
	for _, series := range report.Series {
		total := 0
		for _, bar := range series.Bars {
			total += bar.Weight
		}
		collapsed.Bars = append(collapsed.Bars, models.Bar{Label: series.Name, Weight: total})
	}
	report.Series = []models.Series{collapsed}
	return report
}
