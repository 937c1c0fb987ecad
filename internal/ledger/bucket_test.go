package ledger

import (
	"errors"
	"testing"

	"github.com/mamadbah2/milkweights/internal/domain/models"
)

func TestMonthName(t *testing.T) {
	if name, err := MonthName(0); err != nil || name != "January" {
		t.Fatalf("expected January, got %q %v", name, err)
	}
	if name, err := MonthName(11); err != nil || name != "December" {
		t.Fatalf("expected December, got %q %v", name, err)
	}
	for _, month := range []int{-1, 12} {
		if _, err := MonthName(month); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d: expected ErrInvalidMonth, got %v", month, err)
		}
	}
}

func TestYearBucketMonthsAreIndependent(t *testing.T) {
	b := NewYearBucket(2021)
	b.Ingest(models.NewRecord(2021, 1, 10, "F", 100))
	b.Ingest(models.NewRecord(2021, 6, 1, "F", 40))

	jan, _ := b.SumOfMonth(0)
	jun, _ := b.SumOfMonth(5)
	feb, _ := b.SumOfMonth(1)
	if jan != 100 || jun != 40 || feb != 0 {
		t.Fatalf("unexpected month sums jan=%d jun=%d feb=%d", jan, jun, feb)
	}
	if b.SumOfYear() != 140 {
		t.Fatalf("expected year sum 140, got %d", b.SumOfYear())
	}

	sums := b.MonthlySums()
	if sums[0] != 100 || sums[5] != 40 {
		t.Fatalf("unexpected monthly sums %v", sums)
	}
}

func TestYearBucketKeepsDuplicatesInOrder(t *testing.T) {
	b := NewYearBucket(2021)
	b.Ingest(models.NewRecord(2021, 3, 15, "F", 1))
	b.Ingest(models.NewRecord(2021, 3, 15, "F", 2))
	b.Ingest(models.NewRecord(2021, 3, 1, "F", 3))

	records, err := b.Records(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 || records[0].Weight() != 1 || records[1].Weight() != 2 || records[2].Weight() != 3 {
		t.Fatalf("expected insertion order to be kept, got %v", records)
	}
	if b.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", b.Len())
	}

	// Mutating the returned slice must not reach the bucket.
	records[0] = models.NewRecord(2021, 3, 15, "F", 999)
	if sum, _ := b.SumOfMonth(2); sum != 6 {
		t.Fatalf("bucket changed through copy: %d", sum)
	}
}

func TestYearBucketRejectsBadMonth(t *testing.T) {
	b := NewYearBucket(2021)
	for _, month := range []int{-1, 12, 100} {
		if _, err := b.SumOfMonth(month); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d: expected ErrInvalidMonth, got %v", month, err)
		}
		if _, err := b.Records(month); !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("month %d: expected ErrInvalidMonth from Records, got %v", month, err)
		}
	}
}
