package rental_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/rental-ledger/rental"
	"github.com/warp/rental-ledger/rental/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var fixedNow = time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC)

func newEngine(t *testing.T, s rental.Store) *rental.Engine {
	t.Helper()
	e := rental.NewEngine(s, rental.DefaultDefaults(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	e.Now = func() time.Time { return fixedNow }
	n := 0
	e.NewID = func() string {
		n++
		return fmt.Sprintf("order-%03d", n)
	}
	return e
}

func order(name, device string, status rental.Status, start rental.Date, fee int64) rental.Record {
	return rental.Record{
		Status:       status,
		DeviceID:     device,
		StartDate:    start,
		EndDate:      start,
		CustomerName: name,
		Gender:       rental.GenderFemale,
		Age:          30,
		Country:      "台灣",
		Region:       "臺北市",
		LeadSource:   "Instagram",
		RentFee:      fee,
		Deposit:      5000,
	}
}

func seed(t *testing.T, e *rental.Engine, records ...rental.Record) {
	t.Helper()
	for _, r := range records {
		_, err := e.Create(context.Background(), r)
		require.NoError(t, err)
	}
}

// =============================================================================
// CREATE / LOAD
// =============================================================================

func TestCreateOnEmptyStore(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())

	created, err := e.Create(ctx, order("Alice", "Unit-A", rental.StatusReserved, rental.NewDate(2026, 1, 20), 1200))
	require.NoError(t, err)
	assert.Equal(t, "order-001", created.ID)
	assert.Equal(t, "2026-01-15 14:30", created.CreatedAt)

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "Alice", l.Records[0].CustomerName)

	s, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), s.TotalRevenue)
	assert.Equal(t, 0, s.ActiveCount)
	assert.Equal(t, []string{"Unit-A"}, s.OccupiedUnits)
}

func TestCreateIgnoresCallerIdentity(t *testing.T) {
	e := newEngine(t, store.NewMemory())
	r := order("Alice", "Unit-A", rental.StatusReserved, rental.NewDate(2026, 1, 20), 1200)
	r.ID = "forged"
	r.CreatedAt = "1999-01-01 00:00"
	r.Legacy = map[string]string{"x": "y"}

	created, err := e.Create(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "order-001", created.ID)
	assert.Equal(t, "2026-01-15 14:30", created.CreatedAt)
	assert.Nil(t, created.Legacy)
}

func TestAppendRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())

	// GIVEN: A ledger with two orders
	seed(t, e,
		order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100),
		order("B", "U2", rental.StatusReturned, rental.NewDate(2026, 2, 1), 200),
	)
	before, err := e.LoadAll(ctx)
	require.NoError(t, err)

	// WHEN: A third is created
	created, err := e.Create(ctx, order("C", "U3", rental.StatusCheckedOut, rental.NewDate(2026, 3, 1), 300))
	require.NoError(t, err)

	// THEN: The ledger is the old one plus the new order at the end
	after, err := e.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, append(before.Records, created), after.Records)
}

func TestAppendKeepsStoredCellsOfOtherRecords(t *testing.T) {
	ctx := context.Background()

	// GIVEN: A stored order whose number cells are blank, formatted or text
	stored := rental.Table{
		Header: rental.Columns,
		Rows: [][]string{{
			"legacy-1", "2024-05-01 10:00", string(rental.StatusReturned), "S25U 白色",
			"2024-05-01", "2024-05-03", "Bob", "0912345678", string(rental.GenderMale),
			"", "台灣", "臺北市", "Instagram", "", "1,500", "待收",
		}},
	}
	mem := store.NewMemoryWith(stored)
	e := newEngine(t, mem)
	want := append([]string(nil), stored.Rows[0]...)

	// WHEN: Another order is appended, then one is deleted
	seed(t, e,
		order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100),
		order("B", "U2", rental.StatusReserved, rental.NewDate(2026, 1, 2), 100),
	)
	_, err := e.DeleteByID(ctx, "order-001")
	require.NoError(t, err)

	// THEN: The untouched order is written back cell for cell
	table, err := mem.Read(ctx)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, want, table.Rows[0])

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), l.Records[0].RentFee)
	assert.Zero(t, l.Records[0].Deposit)
	assert.Zero(t, l.Records[0].Age)
}

func TestEditWritesChangedNumberCells(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryWith(rental.Table{
		Header: []string{rental.ColID, rental.ColCustomerName, rental.ColStartDate, rental.ColRentFee, rental.ColDeposit},
		Rows:   [][]string{{"legacy-1", "Bob", "2026-01-05", "1,500", "待收"}},
	})
	e := newEngine(t, mem)

	// GIVEN: The January view of a ledger with formatted number cells
	sel := rental.Month(rental.YearMonth{Year: 2026, Month: 1})
	view, err := e.View(ctx, sel)
	require.NoError(t, err)
	require.Len(t, view.Rows, 1)

	// WHEN: Only the deposit is edited
	view.Rows[0].Record.Deposit = 3000
	view.Rows[0].Record.NumberText = nil
	_, err = e.EditSince(ctx, view.Version, sel, view.Rows)
	require.NoError(t, err)

	// THEN: The deposit cell is rewritten and the rent keeps its text
	table, err := mem.Read(ctx)
	require.NoError(t, err)
	row := table.Rows[0]
	assert.Equal(t, "1,500", row[table.Index(rental.ColRentFee)])
	assert.Equal(t, "3000", row[table.Index(rental.ColDeposit)])
}

func TestLoadAllWithoutLedger(t *testing.T) {
	e := newEngine(t, store.NewMemory())
	_, err := e.LoadAll(context.Background())
	assert.ErrorIs(t, err, rental.ErrNoLedger)
	assert.ErrorIs(t, err, rental.ErrStorageUnavailable)
	assert.True(t, rental.IsNotFound(err))
}

func TestViewAndMonths(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())
	seed(t, e,
		order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 3), 100),
		order("B", "U2", rental.StatusReserved, rental.NewDate(2026, 1, 9), 100),
		order("C", "U3", rental.StatusReserved, rental.NewDate(2026, 2, 1), 100),
	)

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []rental.YearMonth{{Year: 2026, Month: 2}, {Year: 2026, Month: 1}}, e.LoadMonths(l))

	view, err := e.View(ctx, rental.Month(rental.YearMonth{Year: 2026, Month: 1}))
	require.NoError(t, err)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "A", view.Rows[0].Record.CustomerName)
	assert.Equal(t, "B", view.Rows[1].Record.CustomerName)
}

// =============================================================================
// EDIT
// =============================================================================

func TestEditMonthCommits(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := newEngine(t, mem)
	seed(t, e,
		order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 3), 100),
		order("B", "U2", rental.StatusReserved, rental.NewDate(2026, 2, 1), 200),
	)

	// GIVEN: The January view
	sel := rental.Month(rental.YearMonth{Year: 2026, Month: 1})
	view, err := e.View(ctx, sel)
	require.NoError(t, err)
	edited := view.Rows
	edited[0].Record.Status = rental.StatusCheckedOut

	// WHEN: The edited view is committed
	committed, err := e.EditSince(ctx, view.Version, sel, edited)
	require.NoError(t, err)
	assert.NotEqual(t, view.Version, committed.Version)

	// THEN: Only the January order changed
	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, rental.StatusCheckedOut, l.Records[0].Status)
	assert.Equal(t, rental.StatusReserved, l.Records[1].Status)
	assert.Equal(t, "order-002", l.Records[1].ID)
}

func TestEditAllAssignsMissingIDs(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())
	seed(t, e, order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 3), 100))

	// GIVEN: The ALL view with one row added by the operator
	base, err := e.LoadAll(ctx)
	require.NoError(t, err)
	rows := append(base.Rows(), rental.Row{
		Position: -1,
		Record:   order("Z", "U2", rental.StatusReserved, rental.NewDate(2026, 4, 1), 50),
	})

	// WHEN: It is committed
	committed, err := e.Edit(ctx, base, rental.All, rows)
	require.NoError(t, err)

	// THEN: The new row gets an id and a creation stamp
	require.Equal(t, 2, committed.Len())
	assert.Equal(t, "order-002", committed.Records[1].ID)
	assert.Equal(t, "2026-01-15 14:30", committed.Records[1].CreatedAt)
	assert.Equal(t, base.Records[0].CreatedAt, committed.Records[0].CreatedAt)
}

func TestEditRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	e := newEngine(t, mem)
	seed(t, e, order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 3), 100))

	// GIVEN: A ledger loaded before another operator commits
	base, err := e.LoadAll(ctx)
	require.NoError(t, err)
	seed(t, e, order("B", "U2", rental.StatusReserved, rental.NewDate(2026, 1, 4), 100))
	writes := mem.Writes()

	edited := base.Rows()
	edited[0].Record.RentFee = 999

	// WHEN: The stale edit is committed
	_, err = e.Edit(ctx, base, rental.All, edited)

	// THEN: It is rejected as retryable and nothing is written
	require.Error(t, err)
	assert.ErrorIs(t, err, rental.ErrConcurrentModification)
	assert.True(t, rental.IsRetryable(err))
	var conflict *rental.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, base.Version, conflict.Expected)

	_, err = e.EditSince(ctx, base.Version, rental.All, edited)
	assert.ErrorIs(t, err, rental.ErrConcurrentModification)

	assert.Equal(t, writes, mem.Writes(), "nothing was written")
	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, int64(100), l.Records[0].RentFee)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDeleteAtPosition(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())
	for i := 0; i < 5; i++ {
		seed(t, e, order(fmt.Sprintf("C%d", i), "U1", rental.StatusReturned, rental.NewDate(2026, 1, i+1), int64(100*i)))
	}
	before, err := e.LoadAll(ctx)
	require.NoError(t, err)

	// WHEN: The middle of five orders is deleted
	removed, err := e.DeleteAt(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "C2", removed.CustomerName)

	// THEN: The others keep their order and content
	after, err := e.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, after.Len())
	assert.Equal(t, before.Records[3], after.Records[2])
	assert.Equal(t, before.Records[:2], after.Records[:2])
	assert.Equal(t, before.Records[4], after.Records[3])
}

func TestDeleteAtOutOfRange(t *testing.T) {
	e := newEngine(t, store.NewMemory())
	seed(t, e, order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100))

	for _, pos := range []int{-1, 1, 10} {
		_, err := e.DeleteAt(context.Background(), pos)
		assert.ErrorIs(t, err, rental.ErrPositionOutOfRange, "position %d", pos)
	}
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())
	seed(t, e,
		order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100),
		order("B", "U2", rental.StatusReserved, rental.NewDate(2026, 1, 2), 100),
	)

	removed, err := e.DeleteByID(ctx, "order-001")
	require.NoError(t, err)
	assert.Equal(t, "A", removed.CustomerName)

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "B", l.Records[0].CustomerName)

	_, err = e.DeleteByID(ctx, "order-001")
	assert.ErrorIs(t, err, rental.ErrRecordNotFound)
}

// =============================================================================
// BACKUP / RESTORE
// =============================================================================

func TestExportSnapshot(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())

	_, err := e.ExportSnapshot(ctx)
	assert.ErrorIs(t, err, rental.ErrNoLedger)

	seed(t, e, order("王小明", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100))
	data, err := e.ExportSnapshot(ctx)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, string(data), "王小明")
	assert.Contains(t, string(data), rental.ColLeadSource)

	assert.Equal(t, "backup_rentals_20260115.csv", rental.SnapshotFilename(fixedNow))
}

func TestImportWithoutLeadSourceColumn(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())
	seed(t, e, order("existing", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100))

	csv := "姓名,手機型號,開始日期,租金,狀態\n" +
		"Bob,S25U 白色,2024/05/01,1000,已歸還(結案)\n" +
		"Carol,S24U 藍色,2024/05/03,800,預約確認\n"

	imported, err := e.ImportSnapshot(ctx, []byte(csv))
	require.NoError(t, err)
	require.Equal(t, 2, imported.Len())

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, l.Len())
	for _, r := range l.Records {
		assert.Equal(t, "舊資料", r.LeadSource)
		assert.Equal(t, "台灣", r.Country)
		assert.NotEmpty(t, r.ID)
	}
	assert.Equal(t, "S25U 白色", l.Records[0].DeviceID)
	assert.Equal(t, "2024-05-01", l.Records[0].StartDate.String())
	assert.Contains(t, l.LegacyColumns, rental.ColLegacyDevice)
}

func TestImportWithBlankLeadSourceCell(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())

	csv := "姓名,客源,開始日期\n" +
		"Bob,Instagram,2026-01-01\n" +
		"Carol,,2026-01-02\n" +
		"Dan,LINE,2026-01-03\n"

	_, err := e.ImportSnapshot(ctx, []byte(csv))
	require.NoError(t, err)

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, l.Len())
	assert.Equal(t, "Instagram", l.Records[0].LeadSource)
	assert.Equal(t, "未填寫", l.Records[1].LeadSource)
	assert.Equal(t, "LINE", l.Records[2].LeadSource)
}

func TestImportRejectsUnrecoverableContent(t *testing.T) {
	cases := map[string][]byte{
		"binary":        {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0xFF},
		"empty":         {},
		"foreign table": []byte("sku,qty\nA-1,3\n"),
		"broken quotes": []byte("姓名,租金\n\"Bob,100\nCarol\",\"x\"y\n"),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mem := store.NewMemory()
			e := newEngine(t, mem)
			seed(t, e, order("A", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 1), 100))
			before, err := e.ExportSnapshot(ctx)
			require.NoError(t, err)

			_, err = e.ImportSnapshot(ctx, data)
			assert.ErrorIs(t, err, rental.ErrSchemaUnrecoverable)
			assert.True(t, rental.IsClientError(err))

			after, err := e.ExportSnapshot(ctx)
			require.NoError(t, err)
			assert.Equal(t, before, after, "store untouched")
		})
	}
}

func TestImportThenExportKeepsLegacyColumns(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, store.NewMemory())

	_, err := e.ImportSnapshot(ctx, []byte("姓名,備註,開始日期\nBob,VIP,2026-01-01\n"))
	require.NoError(t, err)

	seed(t, e, order("Carol", "U1", rental.StatusReserved, rental.NewDate(2026, 1, 2), 100))

	l, err := e.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"備註"}, l.LegacyColumns)
	assert.Equal(t, "VIP", l.Records[0].Legacy["備註"])
	assert.Equal(t, "", l.Records[1].Legacy["備註"])
}
