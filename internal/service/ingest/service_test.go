package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/ledger"
	"github.com/mamadbah2/milkweights/internal/parser"
)

type fakeSheets struct {
	rows     [][]string
	readErr  error
	appended [][]string
	ranges   []string
}

func (f *fakeSheets) AppendRow(_ context.Context, sheetRange string, values []string) error {
	f.ranges = append(f.ranges, sheetRange)
	f.appended = append(f.appended, values)
	return nil
}

func (f *fakeSheets) ReadRows(_ context.Context, sheetRange string) ([][]string, error) {
	f.ranges = append(f.ranges, sheetRange)
	return f.rows, f.readErr
}

type failingSink struct{}

func (failingSink) Append(context.Context, models.Record) error { return errors.New("sink down") }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func sumAll(t *testing.T, s *Service) int {
	t.Helper()
	var total int
	_ = s.View(func(r *ledger.Registry) error {
		total = r.SumAll()
		return nil
	})
	return total
}

func TestIngestPath(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "date,farm,weight\n2021-01-01,A,1\n2021-01-02,B,2\n2021-02-01,A,3\n")
	svc := NewService(nil, nil, "", nil, nil)

	n, err := svc.IngestPath(context.Background(), good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 || sumAll(t, svc) != 6 {
		t.Fatalf("expected 3 records summing to 6, got n=%d sum=%d", n, sumAll(t, svc))
	}
}

func TestIngestPathErrors(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(nil, nil, "", nil, nil)

	txt := writeFile(t, dir, "data.txt", "h\n2021-01-01,A,1\n")
	if _, err := svc.IngestPath(context.Background(), txt); !errors.Is(err, ErrNotCSV) {
		t.Fatalf("expected ErrNotCSV, got %v", err)
	}

	if _, err := svc.IngestPath(context.Background(), filepath.Join(dir, "missing.csv")); !errors.Is(err, parser.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	bad := writeFile(t, dir, "bad.csv", "h\n2021-01-01,A,1\n2021-01-02,A,2\nnot-a-date,F,10\n")
	if _, err := svc.IngestPath(context.Background(), bad); !errors.Is(err, parser.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if sumAll(t, svc) != 0 {
		t.Fatalf("nothing should be committed, sum=%d", sumAll(t, svc))
	}
}

func TestIngestPathsCommitsGoodFilesInOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "h\n2021-01-01,FarmA,1\n")
	bad := writeFile(t, dir, "bad.csv", "h\n2021-01-01,FarmX,oops\n")
	b := writeFile(t, dir, "b.csv", "h\n2021-01-01,FarmB,2\n2021-01-01,FarmA,4\n")

	svc := NewService(nil, nil, "", nil, nil)
	n, err := svc.IngestPaths(context.Background(), a, bad, b)
	if !errors.Is(err, parser.ErrFormat) {
		t.Fatalf("expected joined format error, got %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 committed records, got %d", n)
	}

	_ = svc.View(func(r *ledger.Registry) error {
		farms := r.Farms()
		if len(farms) != 2 || farms[0].FarmID() != "FarmA" || farms[1].FarmID() != "FarmB" {
			t.Fatalf("expected farms committed in argument order, got %d farms", len(farms))
		}
		if _, ok := r.Farm("FarmX"); ok {
			t.Fatalf("bad file must not be committed")
		}
		if r.SumFarm("FarmA") != 5 {
			t.Fatalf("unexpected FarmA total %d", r.SumFarm("FarmA"))
		}
		return nil
	})
}

func TestIngestPathsCancelled(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "h\n2021-01-01,FarmA,1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(nil, nil, "", nil, nil)
	if _, err := svc.IngestPaths(ctx, a); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if sumAll(t, svc) != 0 {
		t.Fatalf("nothing should be committed after cancellation")
	}
}

func TestIngestReader(t *testing.T) {
	svc := NewService(nil, nil, "", nil, nil)
	n, err := svc.IngestReader(context.Background(), "upload", strings.NewReader("h\n2021-05-05,A,10\n"))
	if err != nil || n != 1 {
		t.Fatalf("unexpected result n=%d err=%v", n, err)
	}
	if _, err := svc.IngestReader(context.Background(), "upload", strings.NewReader("h\n2021-05-05,A\n")); !errors.Is(err, parser.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
	if sumAll(t, svc) != 10 {
		t.Fatalf("expected 10, got %d", sumAll(t, svc))
	}
}

func TestIngestSheet(t *testing.T) {
	repo := &fakeSheets{rows: [][]string{
		{"date", "farm", "weight"},
		{"2021-01-01", "A", "5"},
		{"2021-03-01", "B", "7"},
	}}
	svc := NewService(nil, repo, "Milk!A:C", nil, nil)

	n, err := svc.IngestSheet(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("unexpected result n=%d err=%v", n, err)
	}
	if repo.ranges[0] != "Milk!A:C" {
		t.Fatalf("unexpected range %q", repo.ranges[0])
	}
	if sumAll(t, svc) != 12 {
		t.Fatalf("expected 12, got %d", sumAll(t, svc))
	}

	repo.rows = append(repo.rows, []string{"2021-03-02", "B"})
	_, err = svc.IngestSheet(context.Background())
	var fe *parser.FormatError
	if !errors.As(err, &fe) || fe.Line != 4 {
		t.Fatalf("expected format error on row 4, got %v", err)
	}
	if sumAll(t, svc) != 12 {
		t.Fatalf("failed sheet must not be committed, got %d", sumAll(t, svc))
	}

	repo.readErr = errors.New("quota")
	if _, err := svc.IngestSheet(context.Background()); !errors.Is(err, parser.ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}

	if _, err := NewService(nil, nil, "", nil, nil).IngestSheet(context.Background()); !errors.Is(err, ErrSheetsDisabled) {
		t.Fatalf("expected ErrSheetsDisabled, got %v", err)
	}
}

func TestParseEntry(t *testing.T) {
	rec, err := ParseEntry(Entry{Date: "2024-02-29", FarmID: " FarmA ", Weight: " 12 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.FarmID() != "FarmA" || rec.Weight() != 12 || rec.DateString() != "2024-2-29" {
		t.Fatalf("unexpected record %v", rec)
	}

	bad := []Entry{
		{Date: "2024/01/01", FarmID: "A", Weight: "1"},
		{Date: "2024-aa-01", FarmID: "A", Weight: "1"},
		{Date: "2024-13-01", FarmID: "A", Weight: "1"},
		{Date: "2024-00-01", FarmID: "A", Weight: "1"},
		{Date: "2023-02-29", FarmID: "A", Weight: "1"},
		{Date: "2024-04-31", FarmID: "A", Weight: "1"},
		{Date: "2024-04-00", FarmID: "A", Weight: "1"},
		{Date: "2024-04-01", FarmID: " ", Weight: "1"},
		{Date: "2024-04-01", FarmID: "A,B", Weight: "1"},
		{Date: "2024-04-01", FarmID: "A", Weight: "1.5"},
	}
	for _, entry := range bad {
		if _, err := ParseEntry(entry); !errors.Is(err, ErrInvalidEntry) {
			t.Fatalf("entry %+v: expected ErrInvalidEntry, got %v", entry, err)
		}
	}
}

func TestIngestEntryForwardsToSinks(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	csvSink, err := NewCSVFileSink(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sheetRepo := &fakeSheets{}
	svc := NewService(nil, nil, "", nil, nil, csvSink, NewSheetSink(sheetRepo, "Entries!A:C"))

	for _, e := range []Entry{
		{Date: "2021-03-15", FarmID: "FarmA", Weight: "120"},
		{Date: "2021-3-16", FarmID: "FarmB", Weight: "80"},
	} {
		if _, err := svc.IngestEntry(context.Background(), e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "date,farm_id,weight\n2021-03-15,FarmA,120\n2021-03-16,FarmB,80\n"
	if string(content) != want {
		t.Fatalf("unexpected output file:\n%s", content)
	}

	// The written file is valid input again.
	again := NewService(nil, nil, "", nil, nil)
	if n, err := again.IngestPath(context.Background(), out); err != nil || n != 2 {
		t.Fatalf("expected output file to re-ingest, n=%d err=%v", n, err)
	}

	if len(sheetRepo.appended) != 2 || sheetRepo.appended[1][0] != "2021-03-16" || sheetRepo.ranges[0] != "Entries!A:C" {
		t.Fatalf("unexpected sheet rows %v", sheetRepo.appended)
	}
}

func TestCSVFileSinkTerminatesUnfinishedLastLine(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	if err := os.WriteFile(out, []byte("date,farm_id,weight\n2021-01-01,A,1"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	csvSink, err := NewCSVFileSink(out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, rec := range []models.Record{
		models.NewRecord(2021, 1, 2, "A", 2),
		models.NewRecord(2021, 1, 3, "A", 3),
	} {
		if err := csvSink.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "date,farm_id,weight\n2021-01-01,A,1\n2021-01-02,A,2\n2021-01-03,A,3\n"
	if string(content) != want {
		t.Fatalf("unexpected output file:\n%q", content)
	}

	svc := NewService(nil, nil, "", nil, nil)
	if n, err := svc.IngestPath(context.Background(), out); err != nil || n != 3 {
		t.Fatalf("expected output file to re-ingest, n=%d err=%v", n, err)
	}
}

func TestIngestEntrySinkFailureKeepsRecord(t *testing.T) {
	svc := NewService(nil, nil, "", nil, nil, failingSink{})
	rec, err := svc.IngestEntry(context.Background(), Entry{Date: "2021-01-01", FarmID: "A", Weight: "3"})
	if !errors.Is(err, ErrSink) {
		t.Fatalf("expected ErrSink, got %v", err)
	}
	if rec.Weight() != 3 || sumAll(t, svc) != 3 {
		t.Fatalf("record must be committed despite sink failure")
	}

	if _, err := svc.IngestEntry(context.Background(), Entry{Date: "x", FarmID: "A", Weight: "3"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestNewCSVFileSinkRejectsOtherExtensions(t *testing.T) {
	if _, err := NewCSVFileSink("out.txt"); !errors.Is(err, ErrNotCSV) {
		t.Fatalf("expected ErrNotCSV, got %v", err)
	}
}

func TestConcurrentWritersAndReaders(t *testing.T) {
	svc := NewService(nil, nil, "", nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.IngestEntry(context.Background(), Entry{Date: "2021-01-01", FarmID: "A", Weight: "1"})
		}()
		go func() {
			defer wg.Done()
			sumAll(t, svc)
		}()
	}
	wg.Wait()

	if sumAll(t, svc) != 20 {
		t.Fatalf("expected 20, got %d", sumAll(t, svc))
	}
}

func TestMetricsCountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewService(nil, nil, "", metrics, nil)

	_, _ = svc.IngestReader(context.Background(), "a", strings.NewReader("h\n2021-01-01,A,1\n2021-01-01,B,1\n"))
	_, _ = svc.IngestReader(context.Background(), "b", strings.NewReader("h\nbad\n"))

	if got := testutil.ToFloat64(metrics.records.WithLabelValues(sourceFile)); got != 2 {
		t.Fatalf("expected 2 records counted, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.sources.WithLabelValues(sourceFile, "failed")); got != 1 {
		t.Fatalf("expected 1 failure counted, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.farms); got != 2 {
		t.Fatalf("expected 2 farms, got %v", got)
	}
}
