/*
scenarios.go - Demo ledgers for testing and demonstrations

PURPOSE:

	Provides pre-built ledgers that replace the stored one with realistic
	data for demos and UI work. Every scenario is rendered to CSV and loaded
	through the same import path as an uploaded backup, so the older file
	formats below are migrated exactly as a real restore would migrate them.

AVAILABLE SCENARIOS:

	current-month:  Orders around today in every status
	first-format:   File from the first release (手機型號, no country,
	                no lead source, no ids)
	mixed-origins:  Foreign customers, blank lead sources, unknown dates

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "first-format"}

NOTE:

	Loading a scenario overwrites the ledger. The routes are only mounted
	when scenarios are enabled in the configuration.

SEE ALSO:
  - handlers.go: ImportSnapshot uses the same engine call
  - rental/migrate.go: What happens to the older formats
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/warp/rental-ledger/rental"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo ledger.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "current-month",
		Name:        "Current Month",
		Description: "Orders around today covering every status",
	},
	{
		ID:          "first-format",
		Name:        "First File Format",
		Description: "Ledger written by the first release, migrated on load",
	},
	{
		ID:          "mixed-origins",
		Name:        "Mixed Origins",
		Description: "Foreign customers, blank lead sources and unparseable dates",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last scenario loaded by this process, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the ledger with a predefined one.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	build, ok := scenarioTables[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	data, err := rental.MarshalCSV(build(h.Engine.Now(), h.Engine.Defaults))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render scenario", err)
		return
	}
	l, err := h.Engine.ImportSnapshot(r.Context(), data)
	if err != nil {
		h.writeEngineError(w, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}
	h.countMutation("scenario")

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"version":  string(l.Version),
		"orders":   strconv.Itoa(l.Len()),
	})
}

// =============================================================================
// SCENARIO TABLES
// =============================================================================

var scenarioTables = map[string]func(now time.Time, d rental.Defaults) rental.Table{
	"current-month": currentMonthTable,
	"first-format":  firstFormatTable,
	"mixed-origins": mixedOriginsTable,
}

func unit(d rental.Defaults, i int) string {
	if len(d.Catalog) == 0 {
		return d.UnknownDevice
	}
	return d.Catalog[i%len(d.Catalog)]
}

func offset(now time.Time, days int) rental.Date {
	t := now.AddDate(0, 0, days)
	return rental.NewDate(t.Year(), t.Month(), t.Day())
}

func currentMonthTable(now time.Time, d rental.Defaults) rental.Table {
	stamp := now.Format(rental.CreatedAtLayout)
	order := func(i int, name string, status rental.Status, from, to int, fee int64) rental.Record {
		return rental.Record{
			CreatedAt:    stamp,
			Status:       status,
			DeviceID:     unit(d, i),
			StartDate:    offset(now, from),
			EndDate:      offset(now, to),
			CustomerName: name,
			Contact:      fmt.Sprintf("09%08d", 12345678+i),
			Gender:       rental.Genders[i%len(rental.Genders)],
			Age:          22 + i,
			Country:      d.DefaultCountry,
			Region:       "臺北市",
			LeadSource:   "Instagram",
			EventName:    "BLACKPINK 高雄",
			RentFee:      1200 + int64(i)*100,
			Deposit:      5000,
		}
	}
	return rental.Encode([]rental.Record{
		order(0, "林小姐", rental.StatusReturned, -20, -17, 1500),
		order(1, "陳先生", rental.StatusCheckedOut, -1, 2, 1800),
		order(2, "王小明", rental.StatusReserved, 3, 5, 1200),
		order(3, "張小姐", rental.StatusReserved, 6, 8, 1200),
		order(4, "李先生", rental.StatusCancelled, 4, 6, 1400),
	}, nil)
}

// firstFormatTable is shaped like files written before ids, country and
// lead source existed.
func firstFormatTable(now time.Time, d rental.Defaults) rental.Table {
	last := now.AddDate(0, -1, 0)
	day := func(n int) string {
		return time.Date(last.Year(), last.Month(), n, 0, 0, 0, 0, time.UTC).Format("2006/01/02")
	}
	return rental.Table{
		Header: []string{
			rental.ColCreatedAt, rental.ColStatus, rental.ColLegacyDevice,
			rental.ColStartDate, rental.ColEndDate, rental.ColCustomerName,
			rental.ColContact, rental.ColRentFee, rental.ColDeposit,
		},
		Rows: [][]string{
			{"", string(rental.StatusReturned), unit(d, 0), day(3), day(5), "黃小姐", "0911222333", "1,500", "5000"},
			{"", string(rental.StatusReturned), unit(d, 1), day(10), day(12), "Kim", "0922333444", "1800.0", "5000"},
			{"", string(rental.StatusCancelled), unit(d, 2), day(15), day(16), "吳先生", "", "1200", ""},
		},
	}
}

func mixedOriginsTable(now time.Time, d rental.Defaults) rental.Table {
	records := []rental.Record{
		{
			Status: rental.StatusReserved, DeviceID: unit(d, 0),
			StartDate: offset(now, 2), EndDate: offset(now, 4),
			CustomerName: "Park", Gender: rental.GenderFemale, Age: 27,
			Country: "南韓", Region: d.ForeignRegion, LeadSource: "Threads", RentFee: 2000,
		},
		{
			Status: rental.StatusCheckedOut, DeviceID: unit(d, 1),
			StartDate: offset(now, -2), EndDate: offset(now, 1),
			CustomerName: "Sato", Gender: rental.GenderMale, Age: 31,
			Country: "日本", Region: d.ForeignRegion, RentFee: 1800,
		},
		{
			Status: rental.StatusReturned, DeviceID: unit(d, 2),
			StartDate: rental.ParseDate("演唱會前一天"), EndDate: rental.ParseDate(""),
			CustomerName: "周小姐", Gender: rental.GenderFemale, Age: 24,
			Country: d.DefaultCountry, Region: "新竹市", LeadSource: "朋友介紹", RentFee: 1300,
		},
	}
	// Blank lead source cells become the unrecorded sentinel on import.
	return rental.Encode(records, nil)
}
