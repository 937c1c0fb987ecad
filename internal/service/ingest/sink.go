package ingest

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/parser"
	"github.com/mamadbah2/milkweights/internal/repository/sheets"
)

// RecordSink receives manual entries once they are accepted.
type RecordSink interface {
	Append(ctx context.Context, rec models.Record) error
}

const csvHeader = "date,farm_id,weight"

// CSVFileSink appends accepted entries to a CSV file in the input format, so
// the file can be ingested again later. A header is written when the file is
// created, since the parser always drops the first line.
type CSVFileSink struct {
	mu   sync.Mutex
	path string
}

// NewCSVFileSink returns a sink for path, which must have a .csv extension.
func NewCSVFileSink(path string) (*CSVFileSink, error) {
	if !isCSV(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotCSV, path)
	}
	return &CSVFileSink{path: path}, nil
}

// Append writes rec as one line. A file that does not end with a newline is
// terminated first so rec never joins the previous line.
func (s *CSVFileSink) Append(_ context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", parser.ErrIO, s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", parser.ErrIO, s.path, err)
	}

	line := rec.String() + "\n"
	if size := info.Size(); size == 0 {
		line = csvHeader + "\n" + line
	} else {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			return fmt.Errorf("%w: read %s: %w", parser.ErrIO, s.path, err)
		}
		if last[0] != '\n' {
			line = "\n" + line
		}
	}
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("%w: write %s: %w", parser.ErrIO, s.path, err)
	}
	return nil
}

// SheetSink appends accepted entries to a spreadsheet range.
type SheetSink struct {
	repo       sheets.Repository
	sheetRange string
}

// NewSheetSink returns a sink writing to sheetRange.
func NewSheetSink(repo sheets.Repository, sheetRange string) *SheetSink {
	return &SheetSink{repo: repo, sheetRange: sheetRange}
}

// Append writes rec as a date, farm, weight row.
func (s *SheetSink) Append(ctx context.Context, rec models.Record) error {
	values := []string{rec.Date().Format(models.DateLayout), rec.FarmID(), strconv.Itoa(rec.Weight())}
	return s.repo.AppendRow(ctx, s.sheetRange, values)
}
