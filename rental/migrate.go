/*
migrate.go - Backward-compatible schema upgrade, re-applied on every load

PURPOSE:
  Files written by every past version of the application must keep
  loading. Migrate brings any table to the canonical column set while
  preserving every existing cell. It is not a one-time upgrade: stores keep
  whatever shape they were written with and Migrate runs on each read.

RULES (independent, idempotent):
  1. Device column absent: copy the legacy device column if present,
     otherwise fill every row with the unknown-device sentinel.
  2. Country column absent: fill with the deployment's default country.
  3. Lead source column absent: fill with the legacy sentinel. Present:
     blank cells become the unrecorded sentinel. The two sentinels are
     distinct on purpose and must never collapse.
  4. Date cells that parse are normalised to 2006-01-02. Cells that do not
     parse are left as they are and decode to an unknown Date.
  5. Any other canonical column that is absent is added blank.
  6. Blank ids are filled with a UUID derived from the row's position and
     content, so two loads of the same file agree on ids.

Migrate never fails.

SEE ALSO:
  - schema.go: Column names, Decode
  - store.go: LedgerStore.Load applies Migrate then Decode
*/
package rental

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// legacyIDSpace namespaces ids derived for rows written before ids existed.
var legacyIDSpace = uuid.MustParse("6f1c2a3e-8d7b-4c55-9a0e-2b4d7e9f1a60")

// Migrate returns a copy of t upgraded to the canonical schema.
func Migrate(t Table, d Defaults) Table {
	out := t.Clone()
	for i := range out.Rows {
		out.padRow(i, len(out.Header))
	}

	if !out.Has(ColDeviceID) {
		if legacy := out.Index(ColLegacyDevice); legacy >= 0 {
			out.addColumn(ColDeviceID, func(i int) string { return out.Rows[i][legacy] })
		} else {
			out.addColumn(ColDeviceID, func(int) string { return d.UnknownDevice })
		}
	}

	if !out.Has(ColCountry) {
		out.addColumn(ColCountry, func(int) string { return d.DefaultCountry })
	}

	if col := out.Index(ColLeadSource); col < 0 {
		out.addColumn(ColLeadSource, func(int) string { return d.LegacyLeadSource })
	} else {
		for i := range out.Rows {
			if strings.TrimSpace(out.Rows[i][col]) == "" {
				out.Rows[i][col] = d.UnrecordedLeadSource
			}
		}
	}

	for _, name := range []string{ColStartDate, ColEndDate} {
		col := out.Index(name)
		if col < 0 {
			continue
		}
		for i := range out.Rows {
			if date := ParseDate(out.Rows[i][col]); date.Valid {
				out.Rows[i][col] = date.String()
			}
		}
	}

	for _, name := range Columns {
		if !out.Has(name) {
			out.addColumn(name, func(int) string { return "" })
		}
	}

	idCol := out.Index(ColID)
	for i := range out.Rows {
		if strings.TrimSpace(out.Rows[i][idCol]) == "" {
			out.Rows[i][idCol] = legacyID(i, out.Rows[i], idCol)
		}
	}

	return out
}

func legacyID(position int, row []string, idCol int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(position))
	for j, cell := range row {
		if j == idCol {
			continue
		}
		b.WriteByte(0x1f)
		b.WriteString(cell)
	}
	return uuid.NewSHA1(legacyIDSpace, []byte(b.String())).String()
}
