package rental

import "time"

var testDefaults = DefaultDefaults()

func rec(name, device string, status Status, start Date, fee int64) Record {
	return Record{
		Status:       status,
		DeviceID:     device,
		StartDate:    start,
		EndDate:      start,
		CustomerName: name,
		Country:      testDefaults.DefaultCountry,
		RentFee:      fee,
	}
}

func day(y int, m time.Month, d int) Date { return NewDate(y, m, d) }

func ledgerOf(records ...Record) Ledger {
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = "id-" + records[i].CustomerName
		}
	}
	return Ledger{Records: records, Version: "v1"}
}

func names(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record.CustomerName
	}
	return out
}
