package ledger

import "github.com/mamadbah2/milkweights/internal/domain/models"

// FarmLedger owns one YearBucket per year for a single farm.
type FarmLedger struct {
	farmID string
	years  keyedSet[int, *YearBucket]
}

// NewFarmLedger returns an empty ledger for farmID.
func NewFarmLedger(farmID string) *FarmLedger {
	return &FarmLedger{farmID: farmID, years: newKeyedSet[int, *YearBucket]()}
}

// FarmID returns the farm identifier.
func (f *FarmLedger) FarmID() string { return f.farmID }

// Ingest files rec under its year, creating the bucket on first use.
func (f *FarmLedger) Ingest(rec models.Record) {
	f.years.getOrCreate(rec.Year(), NewYearBucket).Ingest(rec)
}

// AddYear registers an empty bucket for year.
func (f *FarmLedger) AddYear(year int) (*YearBucket, error) {
	b := NewYearBucket(year)
	if err := f.years.add(year, b); err != nil {
		return nil, err
	}
	return b, nil
}

// AddYearBucket registers a possibly populated bucket. It fails with
// ErrDuplicateKey when the year is already present; use FindYear first.
func (f *FarmLedger) AddYearBucket(b *YearBucket) error {
	return f.years.add(b.Year(), b)
}

// FindYear returns the bucket for year, if any.
func (f *FarmLedger) FindYear(year int) (*YearBucket, bool) {
	return f.years.get(year)
}

// Years lists buckets in the order they were created.
func (f *FarmLedger) Years() []*YearBucket { return f.years.values() }

// SumOfAllWeights sums every year of the farm.
func (f *FarmLedger) SumOfAllWeights() int {
	total := 0
	for _, b := range f.years.order {
		total += b.SumOfYear()
	}
	return total
}
