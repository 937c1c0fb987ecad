package ledger

import (
	"io"

	"github.com/mamadbah2/milkweights/internal/domain/models"
	"github.com/mamadbah2/milkweights/internal/parser"
)

// Registry is the top of the hierarchy: one FarmLedger per farm identifier.
type Registry struct {
	farms keyedSet[string, *FarmLedger]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{farms: newKeyedSet[string, *FarmLedger]()}
}

// Ingest routes rec to its farm ledger, creating the ledger on first use.
func (r *Registry) Ingest(rec models.Record) {
	r.farms.getOrCreate(rec.FarmID(), NewFarmLedger).Ingest(rec)
}

// IngestAll ingests records in order.
func (r *Registry) IngestAll(records []models.Record) {
	for _, rec := range records {
		r.Ingest(rec)
	}
}

// IngestFile parses the whole stream before committing anything: a malformed
// line leaves the registry exactly as it was. It returns the number of
// records ingested.
func (r *Registry) IngestFile(src io.Reader) (int, error) {
	records, err := parser.New(src).ParseAll()
	if err != nil {
		return 0, err
	}
	r.IngestAll(records)
	return len(records), nil
}

// AddFarm registers a ledger. It fails with ErrDuplicateKey when the farm
// identifier is taken.
func (r *Registry) AddFarm(f *FarmLedger) error {
	return r.farms.add(f.FarmID(), f)
}

// Farm returns the ledger of farmID, if any.
func (r *Registry) Farm(farmID string) (*FarmLedger, bool) {
	return r.farms.get(farmID)
}

// Farms lists ledgers in the order farms were first seen.
func (r *Registry) Farms() []*FarmLedger { return r.farms.values() }

// FarmCount returns the number of known farms.
func (r *Registry) FarmCount() int { return r.farms.len() }

// SumOfAllFarmWeights sums every record of every farm.
func (r *Registry) SumOfAllFarmWeights() int {
	total := 0
	for _, f := range r.farms.order {
		total += f.SumOfAllWeights()
	}
	return total
}

// SumAll is an alias of SumOfAllFarmWeights.
func (r *Registry) SumAll() int { return r.SumOfAllFarmWeights() }

// SumFarm sums one farm. Unknown farms sum to zero.
func (r *Registry) SumFarm(farmID string) int {
	f, ok := r.Farm(farmID)
	if !ok {
		return 0
	}
	return f.SumOfAllWeights()
}

// SumFarmYear sums one farm-year. Unknown farms or years sum to zero.
func (r *Registry) SumFarmYear(farmID string, year int) int {
	b, ok := r.bucket(farmID, year)
	if !ok {
		return 0
	}
	return b.SumOfYear()
}

// SumFarmMonth sums one farm-month; month is 0-based.
func (r *Registry) SumFarmMonth(farmID string, year, month int) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	b, ok := r.bucket(farmID, year)
	if !ok {
		return 0, nil
	}
	return b.SumOfMonth(month)
}

// SumYearAcrossFarms sums a year over every farm.
func (r *Registry) SumYearAcrossFarms(year int) int {
	total := 0
	for _, f := range r.farms.order {
		if b, ok := f.FindYear(year); ok {
			total += b.SumOfYear()
		}
	}
	return total
}

// SumMonthAcrossFarms sums a 0-based month of a year over every farm.
func (r *Registry) SumMonthAcrossFarms(year, month int) (int, error) {
	if err := checkMonth(month); err != nil {
		return 0, err
	}
	total := 0
	for _, f := range r.farms.order {
		b, ok := f.FindYear(year)
		if !ok {
			continue
		}
		sum, _ := b.SumOfMonth(month)
		total += sum
	}
	return total, nil
}

func (r *Registry) bucket(farmID string, year int) (*YearBucket, bool) {
	f, ok := r.Farm(farmID)
	if !ok {
		return nil, false
	}
	return f.FindYear(year)
}
