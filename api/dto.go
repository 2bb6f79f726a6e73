/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's Record from the external contract so column names on disk
  and field names on the wire can evolve separately.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers carrying a version or selector

POSITIONS AND VERSIONS:
  Every order returned carries its position in the full ledger, and every
  ledger response carries the store version it was read at. An edit sends
  both back so the server can map rows and detect concurrent changes.

SEE ALSO:
  - handlers.go: Uses these types
  - rental/types.go: Record
*/
package api

import (
	"time"

	"github.com/warp/rental-ledger/backup"
	"github.com/warp/rental-ledger/rental"
)

// =============================================================================
// ORDERS
// =============================================================================

// OrderDTO represents one order in API requests and responses.
// Position is absent for rows added in an edit surface.
type OrderDTO struct {
	Position     *int              `json:"position"`
	ID           string            `json:"id"`
	CreatedAt    string            `json:"created_at"`
	Status       string            `json:"status"`
	DeviceID     string            `json:"device_id"`
	StartDate    string            `json:"start_date"`
	EndDate      string            `json:"end_date"`
	CustomerName string            `json:"customer_name"`
	Contact      string            `json:"contact"`
	Gender       string            `json:"gender"`
	Age          int               `json:"age"`
	Country      string            `json:"country"`
	Region       string            `json:"region"`
	LeadSource   string            `json:"lead_source"`
	EventName    string            `json:"event_name"`
	RentFee      int64             `json:"rent_fee"`
	Deposit      int64             `json:"deposit"`
	Legacy       map[string]string `json:"legacy,omitempty"`
}

// CreateOrderRequest carries validated form values for a new order.
type CreateOrderRequest struct {
	Status       string `json:"status"`
	DeviceID     string `json:"device_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	CustomerName string `json:"customer_name"`
	Contact      string `json:"contact"`
	Gender       string `json:"gender"`
	Age          int    `json:"age"`
	Country      string `json:"country"`
	Region       string `json:"region"`
	LeadSource   string `json:"lead_source"`
	EventName    string `json:"event_name"`
	RentFee      int64  `json:"rent_fee"`
	Deposit      int64  `json:"deposit"`
}

// LedgerResponse is a filtered view of the ledger.
type LedgerResponse struct {
	Version  string     `json:"version"`
	Selector string     `json:"selector"`
	Orders   []OrderDTO `json:"orders"`
}

// EditRequest commits an edited view. Version and Selector must be the
// values of the LedgerResponse the edit started from.
type EditRequest struct {
	Version  string     `json:"version"`
	Selector string     `json:"selector"`
	Orders   []OrderDTO `json:"orders"`
}

// VersionResponse acknowledges a write.
type VersionResponse struct {
	Version string `json:"version"`
	Orders  int    `json:"orders"`
}

// MonthsResponse lists the months that have orders, most recent first.
type MonthsResponse struct {
	Months []string `json:"months"`
}

// =============================================================================
// KPI / ANALYSIS
// =============================================================================

// SummaryDTO carries the headline KPIs.
type SummaryDTO struct {
	TotalRevenue      int64    `json:"total_revenue"`
	ActiveCount       int      `json:"active_count"`
	OccupiedUnits     []string `json:"occupied_units"`
	AvailableEstimate int      `json:"available_estimate"`
	OrderCount        int      `json:"order_count"`
}

// CountDTO is one bucket of a frequency table.
type CountDTO struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AnalysisDTO groups the frequency tables of the analysis view.
type AnalysisDTO struct {
	Country    []CountDTO `json:"country"`
	Region     []CountDTO `json:"region"`
	Gender     []CountDTO `json:"gender"`
	LeadSource []CountDTO `json:"lead_source"`
}

// OptionsDTO lists the values the UI offers in select inputs.
type OptionsDTO struct {
	Statuses    []string `json:"statuses"`
	Genders     []string `json:"genders"`
	Catalog     []string `json:"catalog"`
	Countries   []string `json:"countries"`
	Regions     []string `json:"regions"`
	LeadSources []string `json:"lead_sources"`
}

// BackupStatusDTO reports scheduled backups.
type BackupStatusDTO struct {
	Enabled bool        `json:"enabled"`
	Dir     string      `json:"dir,omitempty"`
	LastRun *backup.Run `json:"last_run,omitempty"`
	NextRun time.Time   `json:"next_run,omitempty"`
	Files   []string    `json:"files,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toOrderDTO(row rental.Row) OrderDTO {
	r := row.Record
	var position *int
	if row.Position >= 0 {
		p := row.Position
		position = &p
	}
	return OrderDTO{
		Position:     position,
		ID:           r.ID,
		CreatedAt:    r.CreatedAt,
		Status:       string(r.Status),
		DeviceID:     r.DeviceID,
		StartDate:    r.StartDate.String(),
		EndDate:      r.EndDate.String(),
		CustomerName: r.CustomerName,
		Contact:      r.Contact,
		Gender:       string(r.Gender),
		Age:          r.Age,
		Country:      r.Country,
		Region:       r.Region,
		LeadSource:   r.LeadSource,
		EventName:    r.EventName,
		RentFee:      r.RentFee,
		Deposit:      r.Deposit,
		Legacy:       r.Legacy,
	}
}

func toOrderDTOs(rows []rental.Row) []OrderDTO {
	dtos := make([]OrderDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toOrderDTO(row)
	}
	return dtos
}

// toRow converts an edited order. Legacy cells are taken from the request
// so an ALL edit, which replaces records verbatim, keeps them. An order
// sent without a position is a new row.
func (o OrderDTO) toRow() rental.Row {
	position := -1
	if o.Position != nil {
		position = *o.Position
	}
	return rental.Row{
		Position: position,
		Record: rental.Record{
			ID:           o.ID,
			CreatedAt:    o.CreatedAt,
			Status:       rental.Status(o.Status),
			DeviceID:     o.DeviceID,
			StartDate:    rental.ParseDate(o.StartDate),
			EndDate:      rental.ParseDate(o.EndDate),
			CustomerName: o.CustomerName,
			Contact:      o.Contact,
			Gender:       rental.Gender(o.Gender),
			Age:          o.Age,
			Country:      o.Country,
			Region:       o.Region,
			LeadSource:   o.LeadSource,
			EventName:    o.EventName,
			RentFee:      o.RentFee,
			Deposit:      o.Deposit,
			Legacy:       o.Legacy,
		},
	}
}

func (req CreateOrderRequest) toRecord() rental.Record {
	end := req.EndDate
	if end == "" {
		end = req.StartDate
	}
	return rental.Record{
		Status:       rental.Status(req.Status),
		DeviceID:     req.DeviceID,
		StartDate:    rental.ParseDate(req.StartDate),
		EndDate:      rental.ParseDate(end),
		CustomerName: req.CustomerName,
		Contact:      req.Contact,
		Gender:       rental.Gender(req.Gender),
		Age:          req.Age,
		Country:      req.Country,
		Region:       req.Region,
		LeadSource:   req.LeadSource,
		EventName:    req.EventName,
		RentFee:      req.RentFee,
		Deposit:      req.Deposit,
	}
}

func toSummaryDTO(s rental.Summary) SummaryDTO {
	units := s.OccupiedUnits
	if units == nil {
		units = []string{}
	}
	return SummaryDTO{
		TotalRevenue:      s.TotalRevenue,
		ActiveCount:       s.ActiveCount,
		OccupiedUnits:     units,
		AvailableEstimate: s.AvailableEstimate,
		OrderCount:        s.OrderCount,
	}
}

func toCountDTOs(counts []rental.Count) []CountDTO {
	dtos := make([]CountDTO, len(counts))
	for i, c := range counts {
		dtos[i] = CountDTO{Key: c.Key, Count: c.N}
	}
	return dtos
}
