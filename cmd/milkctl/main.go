// Command milkctl loads milk weight CSV files and prints totals and reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/parser"
	"github.com/mamadbah2/milkweights/internal/service/ingest"
	"github.com/mamadbah2/milkweights/internal/service/reporting"
	"github.com/mamadbah2/milkweights/pkg/logger"
)

var exitFunc = os.Exit

type options struct {
	files  []string
	farm   string
	year   int
	month  int
	format string
}

// result is what milkctl prints for one invocation.
type result struct {
	Farm   string         `json:"farm,omitempty" yaml:"farm,omitempty"`
	Year   int            `json:"year,omitempty" yaml:"year,omitempty"`
	Month  int            `json:"month,omitempty" yaml:"month,omitempty"`
	Total  int            `json:"total" yaml:"total"`
	Report *models.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

func main() {
	exitFunc(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log, err := logger.New(level)
	if err != nil {
		fmt.Fprintf(stderr, "milkctl: %v\n", err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	ingestSvc := ingest.NewService(nil, nil, "", nil, logger.Named(log, "ingest"))
	if _, err := ingestSvc.IngestPaths(ctx, opts.files...); err != nil {
		fmt.Fprintf(stderr, "milkctl: %s\n", describeError(err))
		return 1
	}

	res, err := query(reporting.NewService(ingestSvc, nil, logger.Named(log, "reporting")), opts)
	if err != nil {
		fmt.Fprintf(stderr, "milkctl: %s\n", describeError(err))
		return 1
	}

	if err := write(stdout, opts.format, res); err != nil {
		fmt.Fprintf(stderr, "milkctl: write output: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("milkctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	var files string
	fs.StringVar(&files, "files", "", "comma separated list of .csv files to load")
	fs.StringVar(&opts.farm, "farm", "", "restrict to one farm id")
	fs.IntVar(&opts.year, "year", 0, "restrict to one year")
	fs.IntVar(&opts.month, "month", 0, "restrict to one month (1-12), requires -year")
	fs.StringVar(&opts.format, "format", "text", "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	for _, f := range strings.Split(files, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.files = append(opts.files, f)
		}
	}
	opts.files = append(opts.files, fs.Args()...)

	switch {
	case len(opts.files) == 0:
		fmt.Fprintln(stderr, "milkctl: no input files, use -files a.csv,b.csv")
		return opts, errors.New("no input files")
	case opts.format != "text" && opts.format != "json" && opts.format != "yaml":
		fmt.Fprintf(stderr, "milkctl: unknown format %q\n", opts.format)
		return opts, errors.New("unknown format")
	}
	return opts, nil
}

func query(svc *reporting.Service, opts options) (result, error) {
	res := result{Farm: opts.farm, Year: opts.year, Month: opts.month}

	total, err := svc.Sum(reporting.Query{FarmID: opts.farm, Year: opts.year, Month: opts.month})
	if err != nil {
		return res, err
	}
	res.Total = total

	if opts.year == 0 {
		return res, nil
	}

	var report models.Report
	switch {
	case opts.farm != "" && opts.month != 0:
		report, err = svc.FarmMonthReport(opts.farm, opts.year, opts.month)
	case opts.farm != "":
		report, err = svc.FarmYearReport(opts.farm, opts.year)
	case opts.month != 0:
		report, err = svc.CollectionMonthReport(opts.year, opts.month)
	default:
		report, err = svc.CollectionYearReport(opts.year)
	}
	if err != nil {
		return res, err
	}
	res.Report = &report
	return res, nil
}

func write(w io.Writer, format string, res result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}

	if _, err := fmt.Fprintf(w, "Total: %d\n", res.Total); err != nil {
		return err
	}
	if res.Report != nil {
		_, err := fmt.Fprintln(w, reporting.FormatReport(*res.Report))
		return err
	}
	return nil
}

// describeError separates unreadable input from malformed input.
func describeError(err error) string {
	switch {
	case errors.Is(err, ingest.ErrNotCSV):
		return fmt.Sprintf("unsupported file: %v", err)
	case errors.Is(err, parser.ErrIO):
		return fmt.Sprintf("could not read input: %v", err)
	case errors.Is(err, parser.ErrFormat):
		return fmt.Sprintf("malformed input: %v", err)
	case errors.Is(err, reporting.ErrFarmNotFound):
		return fmt.Sprintf("no records: %v", err)
	default:
		return err.Error()
	}
}
