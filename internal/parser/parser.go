// Package parser turns delimited milk weight lines ("YYYY-MM-DD,farm,weight")
// into records.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mamadbah2/milkweights/internal/domain/models"
)

const (
	fieldSeparator = ","
	dateSeparator  = "-"
	fieldCount     = 3
	maxLineBytes   = 1 << 20
)

var (
	// ErrFormat is matched by every *FormatError.
	ErrFormat = errors.New("malformed record")
	// ErrIO indicates the underlying stream could not be read.
	ErrIO = errors.New("read input")
)

// FormatError describes the first line that could not be converted.
type FormatError struct {
	Line   int
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d %q: %s", e.Line, e.Input, e.Reason)
	}
	return fmt.Sprintf("%q: %s", e.Input, e.Reason)
}

// Unwrap lets errors.Is(err, ErrFormat) match.
func (e *FormatError) Unwrap() error { return ErrFormat }

// Parser reads records from a stream. The first line is always treated as a
// header and discarded, whatever it contains.
type Parser struct {
	scanner       *bufio.Scanner
	line          int
	headerSkipped bool
}

// New wraps r. Nothing is read until the first call to Next or ParseAll.
func New(r io.Reader) *Parser {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &Parser{scanner: sc}
}

// Next parses exactly one line. It returns io.EOF once the stream is drained.
func (p *Parser) Next() (models.Record, error) {
	if !p.headerSkipped {
		p.headerSkipped = true
		if _, err := p.readLine(); err != nil {
			return models.Record{}, err
		}
	}

	text, err := p.readLine()
	if err != nil {
		return models.Record{}, err
	}

	rec, err := ParseLine(text)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Line = p.line
		}
		return models.Record{}, err
	}
	return rec, nil
}

// ParseAll parses every remaining line. It stops at the first malformed line
// and returns no records in that case.
func (p *Parser) ParseAll() ([]models.Record, error) {
	var records []models.Record
	for {
		rec, err := p.Next()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

func (p *Parser) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrIO, err)
		}
		return "", io.EOF
	}
	p.line++
	return strings.TrimSuffix(p.scanner.Text(), "\r"), nil
}

// ParseLine converts one "YYYY-MM-DD,farm,weight" line.
func ParseLine(line string) (models.Record, error) {
	rec, err := ParseFields(strings.Split(line, fieldSeparator))
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Input = line
		}
		return models.Record{}, err
	}
	return rec, nil
}

// ParseFields converts an already split row (date, farm, weight).
func ParseFields(fields []string) (models.Record, error) {
	input := strings.Join(fields, fieldSeparator)
	if len(fields) != fieldCount {
		return models.Record{}, &FormatError{Input: input, Reason: fmt.Sprintf("expected %d fields, got %d", fieldCount, len(fields))}
	}

	year, month, day, err := parseDate(fields[0])
	if err != nil {
		return models.Record{}, &FormatError{Input: input, Reason: err.Error()}
	}

	weight, err := strconv.Atoi(fields[2])
	if err != nil {
		return models.Record{}, &FormatError{Input: input, Reason: fmt.Sprintf("weight %q is not an integer", fields[2])}
	}

	return models.NewRecord(year, month, day, fields[1], weight), nil
}

// parseDate splits "Y-M-D" into integers. month stays 1-based here.
func parseDate(value string) (year, month, day int, err error) {
	parts := strings.Split(value, dateSeparator)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("date %q is not YYYY-MM-DD", value)
	}

	nums := make([]int, len(parts))
	for i, part := range parts {
		n, convErr := strconv.Atoi(part)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("date %q has non-numeric part %q", value, part)
		}
		nums[i] = n
	}

	return nums[0], nums[1], nums[2], nil
}
