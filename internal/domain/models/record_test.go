package models

import (
	"testing"
	"time"
)

func TestNewRecordAccessors(t *testing.T) {
	r := NewRecord(2021, 3, 5, "FarmA", 120)

	if r.Year() != 2021 || r.Month() != time.March || r.Day() != 5 {
		t.Fatalf("unexpected date parts: %d %d %d", r.Year(), r.Month(), r.Day())
	}
	if r.MonthIndex() != 2 {
		t.Fatalf("expected month index 2, got %d", r.MonthIndex())
	}
	if r.FarmID() != "FarmA" || r.Weight() != 120 {
		t.Fatalf("unexpected farm/weight: %q %d", r.FarmID(), r.Weight())
	}
	if got := r.DateString(); got != "2021-3-5" {
		t.Fatalf("expected unpadded date string, got %q", got)
	}
	if got := r.String(); got != "2021-03-05,FarmA,120" {
		t.Fatalf("unexpected line rendering %q", got)
	}
}

func TestNewRecordRollsOverInvalidDays(t *testing.T) {
	r := NewRecord(2021, 2, 30, "F", 1)
	if r.Month() != time.March || r.Day() != 2 {
		t.Fatalf("expected Feb 30 to roll over to Mar 2, got %s", r.DateString())
	}
}

func TestNewRecordFromTimeDropsClock(t *testing.T) {
	loc := time.FixedZone("x", 3*3600)
	r := NewRecordFromTime(time.Date(2020, 12, 31, 23, 30, 0, 0, loc), "F", -4)
	if r.Year() != 2020 || r.Month() != time.December || r.Day() != 31 {
		t.Fatalf("unexpected date %s", r.DateString())
	}
	if !r.Date().Equal(time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected midnight UTC, got %v", r.Date())
	}
	if r.Weight() != -4 {
		t.Fatalf("negative weights are kept, got %d", r.Weight())
	}
}
