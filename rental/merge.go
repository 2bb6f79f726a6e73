/*
merge.go - Reconciles an edited view back into the full ledger

PURPOSE:
  An operator edits either the whole ledger or one month of it. Merge
  produces the full sequence to persist without disturbing any row the
  operator could not see.

POLICY:
  All:   The edited rows are the new ledger, verbatim and in the order
         given. This is the only mode that honours added or removed rows.
         Rows keep the stored number text of the ledger row sharing their
         id.

  Month: Each edited row is matched to a row of the month's subsequence
         by surrogate id. A row without an id matches by position only
         when the ledger row there has no id either; otherwise it is an
         added row and is dropped. The
         matched full-ledger row takes the edited field values; its id,
         creation stamp and legacy cells are kept. Rows outside the month
         are untouched. Rows added or removed in the edit surface are not
         reflected: the structure of the ledger never changes here.

ATOMICITY:
  Merge is pure. The caller persists the result with one
  LedgerStore.ReplaceAll against the version the view was loaded at, so a
  commit either lands whole or leaves the store as it was.

SEE ALSO:
  - filter.go: Produces the views that are edited
  - engine.go: Edit runs Merge then commits
*/
package rental

// Merge returns the full record sequence after applying edited to full
// under sel. full must be the ledger the view was filtered from.
func Merge(full Ledger, sel Selector, edited []Row) []Record {
	if sel.IsAll() {
		stored := make(map[string]map[string]string)
		for _, r := range full.Records {
			if r.ID != "" && r.NumberText != nil {
				stored[r.ID] = r.NumberText
			}
		}
		out := make([]Record, len(edited))
		for i, row := range edited {
			out[i] = row.Record
			if out[i].NumberText == nil && out[i].ID != "" {
				out[i].NumberText = stored[out[i].ID]
			}
		}
		return out
	}

	view := FilterByMonth(full, sel)
	anonymous := make(map[int]bool)
	byID := make(map[string]int, len(view.Rows))
	for _, row := range view.Rows {
		if row.Record.ID != "" {
			byID[row.Record.ID] = row.Position
		} else {
			anonymous[row.Position] = true
		}
	}

	out := append([]Record(nil), full.Records...)
	for _, row := range edited {
		pos, ok := target(row, anonymous, byID)
		if !ok {
			continue
		}
		out[pos] = full.Records[pos].withFieldsOf(row.Record)
	}
	return out
}

// target resolves the full-ledger position an edited month row writes to.
// anonymous holds the month positions whose ledger row has no id.
func target(row Row, anonymous map[int]bool, byID map[string]int) (int, bool) {
	if row.Record.ID != "" {
		pos, ok := byID[row.Record.ID]
		return pos, ok
	}
	if anonymous[row.Position] {
		return row.Position, true
	}
	return 0, false
}
