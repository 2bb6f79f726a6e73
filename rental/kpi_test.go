package rental

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	// GIVEN: Three units and orders in every status
	catalog := []string{"U1", "U2", "U3"}
	l := ledgerOf(
		rec("A", "U1", StatusReserved, day(2026, 1, 1), 1000),
		rec("B", "U2", StatusCheckedOut, day(2026, 1, 2), 2000),
		rec("C", "U1", StatusCheckedOut, day(2026, 3, 2), 500),
		rec("D", "U3", StatusReturned, day(2025, 12, 2), 700),
		rec("E", "U3", StatusCancelled, day(2026, 1, 5), 9000),
	)

	// WHEN: The headline figures are computed
	s := Summarize(l, catalog)

	// THEN: Cancelled orders earn nothing and returned ones hold no unit
	assert.Equal(t, int64(4200), s.TotalRevenue)
	assert.Equal(t, 2, s.ActiveCount)
	assert.Equal(t, []string{"U1", "U2"}, s.OccupiedUnits)
	assert.Equal(t, 1, s.AvailableEstimate)
	assert.Equal(t, 5, s.OrderCount)
}

func TestSummarizeAvailableNeverNegative(t *testing.T) {
	l := ledgerOf(
		rec("A", "U1", StatusReserved, day(2026, 1, 1), 0),
		rec("B", "off-catalog", StatusReserved, day(2026, 1, 1), 0),
	)
	assert.Equal(t, 0, Summarize(l, []string{"U1"}).AvailableEstimate)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(Ledger{}, []string{"U1", "U2"})
	assert.Zero(t, s.TotalRevenue)
	assert.Empty(t, s.OccupiedUnits)
	assert.Equal(t, 2, s.AvailableEstimate)
}

func TestOccupiedListsCommittedRows(t *testing.T) {
	l := ledgerOf(
		rec("A", "U1", StatusReturned, day(2026, 1, 1), 0),
		rec("B", "U2", StatusReserved, day(2026, 1, 1), 0),
		rec("C", "U3", StatusCheckedOut, day(2026, 1, 1), 0),
	)
	rows := Occupied(l)
	assert.Equal(t, []string{"B", "C"}, names(rows))
	assert.Equal(t, 1, rows[0].Position)
}

func TestAnalyze(t *testing.T) {
	l := ledgerOf(
		Record{CustomerName: "A", Country: "台灣", Region: "臺北市", Gender: GenderFemale, LeadSource: "Instagram"},
		Record{CustomerName: "B", Country: "台灣", Region: "臺北市", Gender: GenderMale, LeadSource: "Instagram"},
		Record{CustomerName: "C", Country: "台灣", Region: "新竹市", Gender: GenderFemale, LeadSource: "LINE"},
		Record{CustomerName: "D", Country: "日本", Region: "國外/其他", Gender: GenderFemale, LeadSource: "舊資料"},
	)

	b := Analyze(l, testDefaults)
	assert.Equal(t, []Count{{"台灣", 3}, {"日本", 1}}, b.Country)
	assert.Equal(t, []Count{{"臺北市", 2}, {"新竹市", 1}}, b.Region)
	assert.Equal(t, []Count{{"女", 3}, {"男", 1}}, b.Gender)
	assert.Equal(t, []Count{{"Instagram", 2}, {"LINE", 1}, {"舊資料", 1}}, b.LeadSource)
}
