/*
kpi.go - Occupancy, revenue and frequency counts derived from the ledger

PURPOSE:
  Pure functions of the full ledger. Nothing is stored; every read
  recomputes from what was loaded.

OCCUPANCY IS AN ESTIMATE:
  A device counts as occupied when any Reserved or Checked-Out order names
  it, whatever the dates. Two orders for the same device in different
  weeks both hold it, so AvailableEstimate can be lower than the true
  number of free devices on a given day.

SEE ALSO:
  - engine.go: Summary loads then calls Summarize
  - metrics/collector.go: Exports Summary as Prometheus gauges
*/
package rental

import (
	"slices"
	"strings"
)

// Summary holds the headline figures shown above the order table.
type Summary struct {
	TotalRevenue      int64
	ActiveCount       int
	OccupiedUnits     []string
	AvailableEstimate int
	OrderCount        int
}

// Summarize computes the headline figures of l against catalog.
func Summarize(l Ledger, catalog []string) Summary {
	s := Summary{OrderCount: len(l.Records)}
	occupied := make(map[string]bool)
	for _, r := range l.Records {
		if r.Status != StatusCancelled {
			s.TotalRevenue += r.RentFee
		}
		if r.Status == StatusCheckedOut {
			s.ActiveCount++
		}
		if r.Status.Commits() {
			occupied[r.DeviceID] = true
		}
	}
	for unit := range occupied {
		s.OccupiedUnits = append(s.OccupiedUnits, unit)
	}
	slices.Sort(s.OccupiedUnits)
	s.AvailableEstimate = max(0, len(catalog)-len(s.OccupiedUnits))
	return s
}

// Occupied returns the rows whose order currently holds its device, in
// ledger order.
func Occupied(l Ledger) []Row {
	var rows []Row
	for i, r := range l.Records {
		if r.Status.Commits() {
			rows = append(rows, Row{Position: i, Record: r})
		}
	}
	return rows
}

// =============================================================================
// BREAKDOWNS - Frequency counts
// =============================================================================

// Count is one bucket of a frequency table.
type Count struct {
	Key string
	N   int
}

// Breakdown counts records by key, largest bucket first, ties by key.
func Breakdown(records []Record, key func(Record) string) []Count {
	counts := make(map[string]int)
	for _, r := range records {
		counts[key(r)]++
	}
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, N: n})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if a.N != b.N {
			return b.N - a.N
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out
}

// Breakdowns groups the ledger the way the analysis view does.
type Breakdowns struct {
	Country    []Count
	Region     []Count
	Gender     []Count
	LeadSource []Count
}

// Analyze builds every breakdown. Regions are counted only for records
// whose country is the deployment default.
func Analyze(l Ledger, d Defaults) Breakdowns {
	var domestic []Record
	for _, r := range l.Records {
		if r.Country == d.DefaultCountry {
			domestic = append(domestic, r)
		}
	}
	return Breakdowns{
		Country:    Breakdown(l.Records, func(r Record) string { return r.Country }),
		Region:     Breakdown(domestic, func(r Record) string { return r.Region }),
		Gender:     Breakdown(l.Records, func(r Record) string { return string(r.Gender) }),
		LeadSource: Breakdown(l.Records, func(r Record) string { return r.LeadSource }),
	}
}
