/*
Package rental provides the ledger and reconciliation engine for a small
fleet of rental devices.

PURPOSE:
  One flat table of orders is the single source of truth. Occupancy,
  revenue and every aggregate are derived from it on each read. Operators
  edit a month at a time and the edits are merged back into the full table
  without touching rows outside that month.

KEY CONCEPTS IN THIS FILE (types.go):
  - Record: one rental order
  - Ledger: the ordered record set plus the store version it was read at
  - Row: a record together with its position in the full ledger
  - Date / YearMonth: calendar values with an explicit "unknown" state
  - Defaults: deployment configuration (catalog, sentinels, options)

DESIGN PRINCIPLES:
  1. Position is significant: it orders the ledger and addresses deletes
  2. Every record also carries a surrogate ID assigned at creation
  3. Legacy columns are never dropped, only supplemented
  4. Bad cell values degrade to sentinels, never to errors

SEE ALSO:
  - schema.go: Column names and record <-> table conversion
  - migrate.go: Backward-compatible schema upgrade
  - engine.go: Boundary operations used by the API and CLI
*/
package rental

import (
	"strings"
	"time"
)

// =============================================================================
// ENUMERATIONS - Values as they appear in the persisted table
// =============================================================================

// Status is the lifecycle state of an order.
type Status string

const (
	StatusReserved   Status = "預約確認"
	StatusCheckedOut Status = "已取機(租借中)"
	StatusReturned   Status = "已歸還(結案)"
	StatusCancelled  Status = "取消"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusReserved, StatusCheckedOut, StatusReturned, StatusCancelled}

// Commits reports whether an order in this status holds its device.
func (s Status) Commits() bool {
	return s == StatusReserved || s == StatusCheckedOut
}

// Gender of the customer.
type Gender string

const (
	GenderFemale Gender = "女"
	GenderMale   Gender = "男"
	GenderOther  Gender = "其他"
)

var Genders = []Gender{GenderFemale, GenderMale, GenderOther}

// =============================================================================
// DATES
// =============================================================================

const (
	DateLayout      = "2006-01-02"
	CreatedAtLayout = "2006-01-02 15:04"
	monthLayout     = "2006-01"
)

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006/1/2",
	"2006-1-2",
}

// Date is a calendar date. A Date that failed to parse is not Valid and
// keeps the original text in Raw so it is written back unchanged.
type Date struct {
	Time  time.Time
	Valid bool
	Raw   string
}

// NewDate returns a valid Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// ParseDate never fails: text that matches no supported layout yields an
// unknown Date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day())
		}
	}
	return Date{Raw: s}
}

func (d Date) String() string {
	if !d.Valid {
		return d.Raw
	}
	return d.Time.Format(DateLayout)
}

// Before orders unknown dates before every valid date.
func (d Date) Before(other Date) bool {
	switch {
	case !d.Valid:
		return other.Valid
	case !other.Valid:
		return false
	default:
		return d.Time.Before(other.Time)
	}
}

// YearMonth is a calendar month bucket such as 2026-01.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses "2006-01".
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, err
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (ym YearMonth) String() string {
	return time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.UTC).Format(monthLayout)
}

func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// =============================================================================
// RECORD - One rental order
// =============================================================================

// Record is one order. Monetary fields are whole currency units.
type Record struct {
	ID           string
	CreatedAt    string
	Status       Status
	DeviceID     string
	StartDate    Date
	EndDate      Date
	CustomerName string
	Contact      string
	Gender       Gender
	Age          int
	Country      string
	Region       string
	LeadSource   string
	EventName    string
	RentFee      int64
	Deposit      int64

	// Legacy holds cells of non-canonical columns, keyed by column name.
	Legacy map[string]string

	// NumberText holds, by column name, the stored text of numeric cells
	// that do not read back as their value ("", "1,500", "待收"). The text
	// is written back as long as the field still holds the value it was
	// read as.
	NumberText map[string]string
}

// withFieldsOf returns r with every editable field taken from src. ID,
// CreatedAt, legacy cells and stored number text are kept.
func (r Record) withFieldsOf(src Record) Record {
	out := src
	out.ID = r.ID
	out.CreatedAt = r.CreatedAt
	out.Legacy = r.Legacy
	out.NumberText = r.NumberText
	return out
}

// Row is a record addressed by its position in the full ledger. Position is
// -1 for rows added by an edit surface.
type Row struct {
	Position int
	Record   Record
}

// Version identifies one persisted state of a store.
type Version string

const (
	// VersionNone is the version of a store with nothing persisted.
	VersionNone Version = ""
	// VersionAny disables the optimistic check on write.
	VersionAny Version = "*"
)

// Ledger is the full ordered record set as of Version.
type Ledger struct {
	Records []Record
	// LegacyColumns lists non-canonical columns in their on-disk order.
	LegacyColumns []string
	Version       Version
}

// Len returns the number of records.
func (l Ledger) Len() int { return len(l.Records) }

// Rows returns every record with its position.
func (l Ledger) Rows() []Row {
	rows := make([]Row, len(l.Records))
	for i, r := range l.Records {
		rows[i] = Row{Position: i, Record: r}
	}
	return rows
}

// =============================================================================
// DEFAULTS - Deployment configuration passed at construction
// =============================================================================

// Defaults carries the per-deployment values the engine needs. Nothing here
// is compiled in; see DefaultDefaults for the stock deployment.
type Defaults struct {
	// Catalog is the ordered inventory of device identifiers.
	Catalog []string

	DefaultCountry       string
	UnknownDevice        string
	LegacyLeadSource     string
	UnrecordedLeadSource string
	ForeignRegion        string

	// Option lists offered to the UI for select inputs.
	Countries   []string
	Regions     []string
	LeadSources []string
}

// DefaultDefaults returns the stock deployment configuration.
func DefaultDefaults() Defaults {
	return Defaults{
		Catalog: []string{
			"S25U 白色",
			"S25U 綠色",
			"S25U 藍色",
			"S24U 藍色",
			"S23U 黑色",
			"iPhone 17 Pro 銀色",
		},
		DefaultCountry:       "台灣",
		UnknownDevice:        "未知型號",
		LegacyLeadSource:     "舊資料",
		UnrecordedLeadSource: "未填寫",
		ForeignRegion:        "國外/其他",
		Countries:            []string{"台灣", "南韓", "日本", "菲律賓", "其他"},
		Regions: []string{
			"臺北市", "新北市", "基隆市", "桃園市", "新竹市", "新竹縣", "宜蘭縣",
			"臺中市", "苗栗縣", "彰化縣", "南投縣", "雲林縣",
			"高雄市", "臺南市", "嘉義市", "嘉義縣", "屏東縣",
			"花蓮縣", "臺東縣",
			"澎湖縣", "金門縣", "連江縣",
			"國外/其他",
		},
		LeadSources: []string{"Instagram", "Facebook", "Threads", "LINE", "朋友介紹", "回頭客", "其他"},
	}
}
