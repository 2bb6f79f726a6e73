package rental

import (
	"fmt"
	"slices"
	"strings"
)

// =============================================================================
// SELECTOR - Which slice of the ledger an edit session works on
// =============================================================================

// Selector is either All or a single calendar month.
type Selector struct {
	all   bool
	month YearMonth
}

// All selects every record.
var All = Selector{all: true}

// AllLabel is the text form of All.
const AllLabel = "ALL"

// Month selects the records whose start date falls in ym.
func Month(ym YearMonth) Selector { return Selector{month: ym} }

// ParseSelector accepts "ALL" (or blank) and "2006-01".
func ParseSelector(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, AllLabel) {
		return All, nil
	}
	ym, err := ParseYearMonth(s)
	if err != nil {
		return Selector{}, fmt.Errorf("invalid month selector %q: %w", s, err)
	}
	return Month(ym), nil
}

func (s Selector) IsAll() bool { return s.all }

// Month returns the selected month; ok is false for All.
func (s Selector) Month() (ym YearMonth, ok bool) { return s.month, !s.all }

func (s Selector) String() string {
	if s.all {
		return AllLabel
	}
	return s.month.String()
}

// =============================================================================
// VIEW FILTER
// =============================================================================

// MonthBucket returns the month of r's start date; ok is false when the
// start date is unknown.
func MonthBucket(r Record) (ym YearMonth, ok bool) {
	if !r.StartDate.Valid {
		return YearMonth{}, false
	}
	return YearMonth{Year: r.StartDate.Time.Year(), Month: r.StartDate.Time.Month()}, true
}

// View is the subsequence of a ledger an edit session displays.
type View struct {
	Selector Selector
	Rows     []Row
	Version  Version
}

// FilterByMonth selects rows of l. For All every row is returned, newest
// start date first, with unknown dates last. For a month only matching rows
// are returned, in ledger order, since the merge maps them back by
// position.
func FilterByMonth(l Ledger, sel Selector) View {
	v := View{Selector: sel, Version: l.Version}
	if sel.IsAll() {
		v.Rows = l.Rows()
		slices.SortStableFunc(v.Rows, func(a, b Row) int {
			switch {
			case b.Record.StartDate.Before(a.Record.StartDate):
				return -1
			case a.Record.StartDate.Before(b.Record.StartDate):
				return 1
			default:
				return 0
			}
		})
		return v
	}

	want, _ := sel.Month()
	for i, r := range l.Records {
		if ym, ok := MonthBucket(r); ok && ym == want {
			v.Rows = append(v.Rows, Row{Position: i, Record: r})
		}
	}
	return v
}

// Months lists every month that has at least one record, most recent first.
func Months(l Ledger) []YearMonth {
	seen := make(map[YearMonth]bool)
	var months []YearMonth
	for _, r := range l.Records {
		if ym, ok := MonthBucket(r); ok && !seen[ym] {
			seen[ym] = true
			months = append(months, ym)
		}
	}
	slices.SortFunc(months, func(a, b YearMonth) int {
		switch {
		case b.Before(a):
			return -1
		case a.Before(b):
			return 1
		default:
			return 0
		}
	})
	return months
}
