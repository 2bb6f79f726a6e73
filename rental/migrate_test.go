package rental

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(t Table, name string) []string {
	col := t.Index(name)
	out := make([]string, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Cell(i, col)
	}
	return out
}

func TestMigrateIsIdempotent(t *testing.T) {
	tables := map[string]Table{
		"first format": {
			Header: []string{ColCustomerName, ColLegacyDevice, ColStartDate, ColRentFee},
			Rows: [][]string{
				{"Bob", "S25U 白色", "2024/05/01", "1000"},
				{"Carol", "S24U 藍色", "sometime", "800"},
			},
		},
		"blank lead source": {
			Header: []string{ColID, ColCustomerName, ColLeadSource, ColStartDate},
			Rows: [][]string{
				{"a", "Dan", "", "2025-01-02"},
				{"", "Eve", "LINE"},
			},
		},
		"empty": {},
		"current": Encode([]Record{rec("Fay", "S25U 綠色", StatusReserved, day(2026, 1, 3), 500)}, nil),
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			once := Migrate(table, testDefaults)
			twice := Migrate(once, testDefaults)
			assert.Equal(t, once.Header, twice.Header)
			assert.Equal(t, once.Rows, twice.Rows)
		})
	}
}

func TestMigrateDoesNotModifyInput(t *testing.T) {
	// GIVEN: A table from the first release
	in := Table{Header: []string{ColCustomerName}, Rows: [][]string{{"Bob"}}}

	// WHEN: It is migrated
	Migrate(in, testDefaults)

	// THEN: The caller's table is left as it was
	assert.Equal(t, []string{ColCustomerName}, in.Header)
	assert.Equal(t, [][]string{{"Bob"}}, in.Rows)
}

func TestMigrateDeviceColumn(t *testing.T) {
	t.Run("copied from legacy column", func(t *testing.T) {
		out := Migrate(Table{
			Header: []string{ColCustomerName, ColLegacyDevice},
			Rows:   [][]string{{"Bob", "S25U 白色"}, {"Carol", ""}},
		}, testDefaults)

		assert.Equal(t, []string{"S25U 白色", ""}, column(out, ColDeviceID))
		assert.True(t, out.Has(ColLegacyDevice), "legacy column is kept")
	})

	t.Run("unknown when no device column exists", func(t *testing.T) {
		out := Migrate(Table{
			Header: []string{ColCustomerName},
			Rows:   [][]string{{"Bob"}, {"Carol"}},
		}, testDefaults)

		assert.Equal(t, []string{testDefaults.UnknownDevice, testDefaults.UnknownDevice}, column(out, ColDeviceID))
	})

	t.Run("existing column wins over legacy", func(t *testing.T) {
		out := Migrate(Table{
			Header: []string{ColLegacyDevice, ColDeviceID},
			Rows:   [][]string{{"old", "new"}},
		}, testDefaults)

		assert.Equal(t, []string{"new"}, column(out, ColDeviceID))
	})
}

func TestMigrateCountryUsesConfiguredDefault(t *testing.T) {
	d := testDefaults
	d.DefaultCountry = "日本"
	out := Migrate(Table{Header: []string{ColCustomerName}, Rows: [][]string{{"Bob"}}}, d)
	assert.Equal(t, []string{"日本"}, column(out, ColCountry))

	kept := Migrate(Table{Header: []string{ColCountry}, Rows: [][]string{{"南韓"}, {""}}}, d)
	assert.Equal(t, []string{"南韓", ""}, column(kept, ColCountry))
}

func TestMigrateLeadSource(t *testing.T) {
	t.Run("absent column becomes legacy sentinel", func(t *testing.T) {
		out := Migrate(Table{
			Header: []string{ColCustomerName},
			Rows:   [][]string{{"Bob"}, {"Carol"}},
		}, testDefaults)

		assert.Equal(t, []string{testDefaults.LegacyLeadSource, testDefaults.LegacyLeadSource}, column(out, ColLeadSource))
	})

	t.Run("blank cells become unrecorded sentinel", func(t *testing.T) {
		out := Migrate(Table{
			Header: []string{ColCustomerName, ColLeadSource},
			Rows:   [][]string{{"Bob", "Instagram"}, {"Carol", "  "}, {"Dan"}},
		}, testDefaults)

		assert.Equal(t, []string{"Instagram", testDefaults.UnrecordedLeadSource, testDefaults.UnrecordedLeadSource},
			column(out, ColLeadSource))
	})

	require.NotEqual(t, testDefaults.LegacyLeadSource, testDefaults.UnrecordedLeadSource)
}

func TestMigrateNormalizesDates(t *testing.T) {
	out := Migrate(Table{
		Header: []string{ColStartDate, ColEndDate},
		Rows: [][]string{
			{"2026/1/5", "2026-01-07 10:30:00"},
			{"next week", ""},
		},
	}, testDefaults)

	assert.Equal(t, []string{"2026-01-05", "next week"}, column(out, ColStartDate))
	assert.Equal(t, []string{"2026-01-07", ""}, column(out, ColEndDate))
}

func TestMigrateAddsEveryCanonicalColumn(t *testing.T) {
	out := Migrate(Table{Header: []string{"備註"}, Rows: [][]string{{"note"}}}, testDefaults)
	for _, c := range Columns {
		assert.True(t, out.Has(c), c)
	}
	assert.Equal(t, "備註", out.Header[0], "existing columns keep their place")
	for _, row := range out.Rows {
		assert.Len(t, row, len(out.Header))
	}
}

func TestMigrateDerivesStableIDs(t *testing.T) {
	in := Table{
		Header: []string{ColID, ColCustomerName},
		Rows:   [][]string{{"", "Bob"}, {"", "Bob"}, {"kept", "Carol"}},
	}

	first := column(Migrate(in, testDefaults), ColID)
	second := column(Migrate(in, testDefaults), ColID)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first[0])
	assert.NotEqual(t, first[0], first[1], "identical rows at different positions get different ids")
	assert.Equal(t, "kept", first[2])
}
