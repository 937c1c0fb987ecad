// Package ledger holds the in-memory milk weight hierarchy:
// registry → farm ledger → year bucket → month → records.
//
// Nothing in this package is safe for concurrent use.
package ledger

import (
	"fmt"

	"github.com/mamadbah2/milkweights/internal/domain/models"
)

// MonthsPerYear is the number of month slots in every YearBucket.
const MonthsPerYear = 12

var monthNames = [MonthsPerYear]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the English name of a 0-based month index.
func MonthName(month int) (string, error) {
	if err := checkMonth(month); err != nil {
		return "", err
	}
	return monthNames[month], nil
}

func checkMonth(month int) error {
	if month < 0 || month >= MonthsPerYear {
		return fmt.Errorf("%w: got %d", ErrInvalidMonth, month)
	}
	return nil
}

// YearBucket partitions one farm's records for one year into twelve months.
// Callers are expected to only ingest records of the bucket's year.
type YearBucket struct {
	year   int
	months [MonthsPerYear][]models.Record
}

// NewYearBucket returns an empty bucket for year.
func NewYearBucket(year int) *YearBucket {
	return &YearBucket{year: year}
}

// Year returns the year this bucket represents.
func (b *YearBucket) Year() int { return b.year }

// Ingest appends rec to the slot of its month. Records sharing a date are all
// kept.
func (b *YearBucket) Ingest(rec models.Record) {
	m := rec.MonthIndex()
	b.months[m] = append(b.months[m], rec)
}

// SumOfMonth sums the weights filed under a 0-based month.
func (b *YearBucket) SumOfMonth(month int) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	return sumWeights(b.months[month]), nil
}

// SumOfYear sums every month.
func (b *YearBucket) SumOfYear() int {
	total := 0
	for _, records := range b.months {
		total += sumWeights(records)
	}
	return total
}

// MonthlySums returns the twelve month totals, January first.
func (b *YearBucket) MonthlySums() [MonthsPerYear]int {
	var sums [MonthsPerYear]int
	for i, records := range b.months {
		sums[i] = sumWeights(records)
	}
	return sums
}

// Records returns a copy of the records of a 0-based month in insertion order.
func (b *YearBucket) Records(month int) ([]models.Record, error) {
	if err := checkMonth(month); err != nil {
		return nil, err
	}
	out := make([]models.Record, len(b.months[month]))
	copy(out, b.months[month])
	return out, nil
}

// Len returns the number of records across all months.
func (b *YearBucket) Len() int {
	n := 0
	for _, records := range b.months {
		n += len(records)
	}
	return n
}

func sumWeights(records []models.Record) int {
	total := 0
	for _, rec := range records {
		total += rec.Weight()
	}
	return total
}
