/*
schema.go - Canonical column set and record <-> table conversion

PURPOSE:
  The persisted ledger is a plain table: a header row and one row of text
  cells per order. This file names the canonical columns and converts
  between a migrated Table and a typed Ledger.

COLUMN POLICY:
  Columns accumulate, they are never renamed or dropped. A table written by
  this engine has the canonical columns first, then every legacy column it
  was loaded with, in the order they were found.

CELL PARSING:
  Decoding is best effort. Numbers go through decimal so values written by
  spreadsheet tools ("1200.0", " 1200 ") load cleanly; anything unparseable
  becomes 0. Neither loses the stored text: dates that fail to parse keep
  it in Date.Raw, and numeric cells that do not read back as their value
  keep it in Record.NumberText until the value is edited.

SEE ALSO:
  - migrate.go: Brings an arbitrary table to the canonical column set
  - codec.go: Table <-> CSV bytes
*/
package rental

import (
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COLUMNS
// =============================================================================

const (
	ColID           = "訂單編號"
	ColCreatedAt    = "建檔時間"
	ColStatus       = "狀態"
	ColDeviceID     = "手機編號"
	ColStartDate    = "開始日期"
	ColEndDate      = "結束日期"
	ColCustomerName = "姓名"
	ColContact      = "電話"
	ColGender       = "性別"
	ColAge          = "年齡"
	ColCountry      = "國家"
	ColRegion       = "縣市"
	ColLeadSource   = "客源"
	ColEventName    = "演唱會"
	ColRentFee      = "租金"
	ColDeposit      = "押金"

	// ColLegacyDevice is the device column of the first file format.
	ColLegacyDevice = "手機型號"
)

// Columns is the canonical header in write order.
var Columns = []string{
	ColID,
	ColCreatedAt,
	ColStatus,
	ColDeviceID,
	ColStartDate,
	ColEndDate,
	ColCustomerName,
	ColContact,
	ColGender,
	ColAge,
	ColCountry,
	ColRegion,
	ColLeadSource,
	ColEventName,
	ColRentFee,
	ColDeposit,
}

var canonical = func() map[string]bool {
	m := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		m[c] = true
	}
	return m
}()

// IsCanonical reports whether name is one of Columns.
func IsCanonical(name string) bool { return canonical[name] }

// knownColumn reports whether name belongs to any schema generation.
func knownColumn(name string) bool {
	return canonical[name] || name == ColLegacyDevice
}

// =============================================================================
// TABLE - Raw tabular record set
// =============================================================================

// Table is the untyped shape of a persisted ledger. Rows may be shorter than
// Header; missing cells read as blank.
type Table struct {
	Header  []string
	Rows    [][]string
	Version Version
}

// Index returns the column index of name, or -1.
func (t Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Has reports whether the column is present.
func (t Table) Has(name string) bool { return t.Index(name) >= 0 }

// Cell returns the cell at row i of column col, blank when absent.
func (t Table) Cell(i, col int) string {
	if col < 0 || col >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][col]
}

// Clone returns a deep copy.
func (t Table) Clone() Table {
	out := Table{Header: append([]string(nil), t.Header...), Version: t.Version}
	out.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// addColumn appends a column filled by fill(row index).
func (t *Table) addColumn(name string, fill func(i int) string) {
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.padRow(i, len(t.Header)-1)
		t.Rows[i] = append(t.Rows[i], fill(i))
	}
}

func (t *Table) padRow(i, width int) {
	for len(t.Rows[i]) < width {
		t.Rows[i] = append(t.Rows[i], "")
	}
}

// =============================================================================
// DECODE - Migrated Table -> Ledger
// =============================================================================

// Decode converts a migrated table into a Ledger. Columns that are not
// canonical are carried in Record.Legacy.
func Decode(t Table) Ledger {
	idx := make(map[string]int, len(Columns))
	for _, c := range Columns {
		idx[c] = t.Index(c)
	}
	var legacy []int
	l := Ledger{Version: t.Version, Records: make([]Record, 0, len(t.Rows))}
	for i, h := range t.Header {
		if !IsCanonical(h) {
			legacy = append(legacy, i)
			l.LegacyColumns = append(l.LegacyColumns, h)
		}
	}

	for i := range t.Rows {
		cell := func(col string) string { return t.Cell(i, idx[col]) }
		r := Record{
			ID:           cell(ColID),
			CreatedAt:    cell(ColCreatedAt),
			Status:       Status(strings.TrimSpace(cell(ColStatus))),
			DeviceID:     cell(ColDeviceID),
			StartDate:    ParseDate(cell(ColStartDate)),
			EndDate:      ParseDate(cell(ColEndDate)),
			CustomerName: cell(ColCustomerName),
			Contact:      cell(ColContact),
			Gender:       Gender(strings.TrimSpace(cell(ColGender))),
			Age:          int(parseWhole(cell(ColAge))),
			Country:      cell(ColCountry),
			Region:       cell(ColRegion),
			LeadSource:   cell(ColLeadSource),
			EventName:    cell(ColEventName),
			RentFee:      parseWhole(cell(ColRentFee)),
			Deposit:      parseWhole(cell(ColDeposit)),
		}
		for _, col := range numberColumns {
			raw := cell(col)
			if raw != strconv.FormatInt(parseWhole(raw), 10) {
				if r.NumberText == nil {
					r.NumberText = make(map[string]string)
				}
				r.NumberText[col] = raw
			}
		}
		if len(legacy) > 0 {
			r.Legacy = make(map[string]string, len(legacy))
			for _, col := range legacy {
				r.Legacy[t.Header[col]] = t.Cell(i, col)
			}
		}
		l.Records = append(l.Records, r)
	}
	return l
}

var numberColumns = []string{ColAge, ColRentFee, ColDeposit}

// numberCell renders v for col, preferring the stored text while it still
// reads as v.
func (r Record) numberCell(col string, v int64) string {
	if raw, ok := r.NumberText[col]; ok && parseWhole(raw) == v {
		return raw
	}
	return strconv.FormatInt(v, 10)
}

// parseWhole reads an integer cell, tolerating decimals and thousands
// separators. Unparseable cells are 0.
func parseWhole(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.Round(0).IntPart()
}

// =============================================================================
// ENCODE - Records -> Table
// =============================================================================

// Encode converts records into a table with the canonical columns followed
// by legacyColumns. Columns mentioned only in a record's Legacy map are
// appended after those, so no cell is lost.
func Encode(records []Record, legacyColumns []string) Table {
	header := append([]string(nil), Columns...)
	seen := make(map[string]bool)
	for _, c := range legacyColumns {
		if !seen[c] && !IsCanonical(c) {
			seen[c] = true
			header = append(header, c)
		}
	}
	var extra []string
	for _, r := range records {
		for c := range r.Legacy {
			if !seen[c] && !IsCanonical(c) {
				seen[c] = true
				extra = append(extra, c)
			}
		}
	}
	slices.Sort(extra)
	header = append(header, extra...)

	t := Table{Header: header, Rows: make([][]string, len(records))}
	for i, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt,
			string(r.Status),
			r.DeviceID,
			r.StartDate.String(),
			r.EndDate.String(),
			r.CustomerName,
			r.Contact,
			string(r.Gender),
			r.numberCell(ColAge, int64(r.Age)),
			r.Country,
			r.Region,
			r.LeadSource,
			r.EventName,
			r.numberCell(ColRentFee, r.RentFee),
			r.numberCell(ColDeposit, r.Deposit),
		}
		for _, c := range header[len(Columns):] {
			row = append(row, r.Legacy[c])
		}
		t.Rows[i] = row
	}
	return t
}
