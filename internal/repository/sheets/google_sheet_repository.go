package sheets

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/milkweights/internal/config"
)

// Repository defines the spreadsheet operations the ingest service relies on.
type Repository interface {
	AppendRow(ctx context.Context, sheetRange string, values []string) error
	ReadRows(ctx context.Context, sheetRange string) ([][]string, error)
}

// GoogleSheetRepository implements Repository using the official Google Sheets API.
type GoogleSheetRepository struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// AppendRow appends one row below the data already present in sheetRange.
// Values are sent RAW so dates stay "YYYY-MM-DD" text.
func (r *GoogleSheetRepository) AppendRow(ctx context.Context, sheetRange string, values []string) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	call := r.service.Spreadsheets.Values.Append(r.spreadsheetID, sheetRange, payload).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)

	if _, err := call.Do(); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	r.logger.Debug("row appended to sheet", zap.String("range", sheetRange))
	return nil
}

// ReadRows fetches a range, one slice per row. Numbers come back unformatted
// so display formats such as "1,200" do not leak into weights; dates keep
// their displayed text.
func (r *GoogleSheetRepository) ReadRows(ctx context.Context, sheetRange string) ([][]string, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(r.spreadsheetID, sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return stringifyRows(resp.Values), nil
}

func stringifyRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, raw := range values {
		row := make([]string, len(raw))
		for j, cell := range raw {
			row[j] = cellText(cell)
		}
		rows[i] = row
	}
	return rows
}

// cellText renders a cell value. Unformatted numbers arrive as float64 and are
// written without exponent so 1000000 stays "1000000".
func cellText(cell interface{}) string {
	if f, ok := cell.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(cell)
}
