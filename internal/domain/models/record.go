package models

import (
	"fmt"
	"time"
)

// Record is a single dated milk weight reported by one farm.
// Fields are unexported so a record cannot drift away from the month bucket it
// was filed under once ingested.
type Record struct {
	date   time.Time
	farmID string
	weight int
}

// NewRecord builds a record from calendar parts. month is 1-based (January = 1).
// Out-of-range parts roll over the way calendar arithmetic does (Feb 30 → Mar 2).
func NewRecord(year, month, day int, farmID string, weight int) Record {
	return NewRecordFromTime(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), farmID, weight)
}

// NewRecordFromTime builds a record for the calendar day of t.
func NewRecordFromTime(t time.Time, farmID string, weight int) Record {
	return Record{
		date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		farmID: farmID,
		weight: weight,
	}
}

// Date returns the record date at midnight UTC.
func (r Record) Date() time.Time { return r.date }

// Year returns the calendar year.
func (r Record) Year() int { return r.date.Year() }

// Month returns the 1-based calendar month.
func (r Record) Month() time.Month { return r.date.Month() }

// MonthIndex returns the 0-based month (January = 0) used to pick a month bucket.
func (r Record) MonthIndex() int { return int(r.date.Month()) - 1 }

// Day returns the day of month.
func (r Record) Day() int { return r.date.Day() }

// FarmID returns the identifier of the producing farm.
func (r Record) FarmID() string { return r.farmID }

// Weight returns the recorded weight.
func (r Record) Weight() int { return r.weight }

// DateString renders the date as "Y-M-D" without zero padding.
func (r Record) DateString() string {
	return fmt.Sprintf("%d-%d-%d", r.Year(), int(r.Month()), r.Day())
}

// String renders the record as an input line ("YYYY-MM-DD,farm,weight").
func (r Record) String() string {
	return fmt.Sprintf("%s,%s,%d", r.date.Format(DateLayout), r.farmID, r.weight)
}

// DateLayout is the layout of the date column in input files.
const DateLayout = "2006-01-02"
