package models

import (
	"sort"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

// ZeroCollectionDriver is the sentinel driver label for loss that is the
// company's to absorb rather than any individual driver's.
const ZeroCollectionDriver = "Zero Collection"

// LossRecord is one row of the loss matrix: the shortfall (positive) or
// surplus (negative) of a collection against the daily target, after
// same-day multi-vehicle reallocation.
type LossRecord struct {
	Date       time.Time       `json:"date"`
	VehicleId  string          `json:"vehicle_id"`
	DriverName string          `json:"driver_name"`
	LossAmount decimal.Decimal `json:"loss_amount"`
}

// MonthKey is the YYYY-MM rollup key of the row's date.
func (r LossRecord) MonthKey() string {
	return r.Date.Format("2006-01")
}

// BuildLossMatrix transforms every record into a loss row and resolves
// days where one driver handled more than one vehicle.
//
// Per record: loss = dailyTarget - amount.
//
// Then rows are grouped by (date, driver). When a named driver (not the
// sentinel) has several vehicles on one day, the per-vehicle targets
// would double-penalize a driver who met the combined target, so the
// pooled day total is re-cut:
//
//	first_loss  = total - dailyTarget
//	second_loss = dailyTarget + first_loss
//
// The group is ordered by vehicle id. The first row takes first_loss.
// If first_loss <= -dailyTarget the pooled surplus covers two full
// targets: the first row clamps to zero and the rest of the group is left
// untouched. Otherwise the second row takes second_loss and its driver is
// relabeled to the sentinel, moving that remainder into the company
// bucket; any rows past the second are relabeled with a zero loss (their
// shortfall is already inside the pooled total carried by the first two).
//
// second_loss is derived from first_loss on purpose, not simplified back
// to the pooled total. Finance has not confirmed the second target
// subtraction; keep the arithmetic exactly as written until they do.
//
// Rows with an empty driver name never pool: pooling anonymous rows from
// different vehicles would attribute unrelated shortfalls to one another.
//
// The output is ordered by date, vehicle, then driver, and the function
// is pure: same history in, same rows out.
func BuildLossMatrix(h *CollectionHistory, dailyTarget decimal.Decimal) []LossRecord {
	rows := make([]LossRecord, 0, len(h.records))
	for _, r := range h.records {
		driver := strings.TrimSpace(utils.DereferencePtr(r.DriverName))
		rows = append(rows, LossRecord{
			Date:       r.CollectionDate,
			VehicleId:  r.VehicleId,
			DriverName: driver,
			LossAmount: dailyTarget.Sub(r.Amount),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ak, bk := DateKey(rows[i].Date), DateKey(rows[j].Date)
		if ak != bk {
			return ak < bk
		}
		if rows[i].VehicleId != rows[j].VehicleId {
			return rows[i].VehicleId < rows[j].VehicleId
		}
		return rows[i].DriverName < rows[j].DriverName
	})

	groups := make(map[string][]int)
	for i, row := range rows {
		if row.DriverName == "" || row.DriverName == ZeroCollectionDriver {
			continue
		}
		key := DateKey(row.Date) + "|" + row.DriverName
		groups[key] = append(groups[key], i)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		idxs := groups[key]
		if len(idxs) < 2 {
			continue
		}
		// idxs are already in vehicle-id order within the day because of
		// the row sort above.
		total := decimal.Zero
		for _, i := range idxs {
			total = total.Add(rows[i].LossAmount)
		}
		firstLoss := total.Sub(dailyTarget)
		secondLoss := dailyTarget.Add(firstLoss)

		if firstLoss.LessThanOrEqual(dailyTarget.Neg()) {
			rows[idxs[0]].LossAmount = decimal.Zero
			continue
		}

		rows[idxs[0]].LossAmount = firstLoss
		rows[idxs[1]].LossAmount = secondLoss
		rows[idxs[1]].DriverName = ZeroCollectionDriver
		for _, i := range idxs[2:] {
			rows[i].LossAmount = decimal.Zero
			rows[i].DriverName = ZeroCollectionDriver
		}
	}

	return rows
}

// LossFilter narrows a loss-record set. Nil fields match everything.
// FromDate/ToDate are inclusive calendar dates; Month is a YYYY-MM key.
type LossFilter struct {
	VehicleId  *string
	DriverName *string
	FromDate   *time.Time
	ToDate     *time.Time
	Month      *string
}

// FilterLossRecords returns the rows matching the filter, preserving order.
func FilterLossRecords(rows []LossRecord, f LossFilter) []LossRecord {
	out := make([]LossRecord, 0, len(rows))
	for _, row := range rows {
		if f.VehicleId != nil && row.VehicleId != *f.VehicleId {
			continue
		}
		if f.DriverName != nil && row.DriverName != *f.DriverName {
			continue
		}
		if f.FromDate != nil && DateKey(row.Date) < DateKey(*f.FromDate) {
			continue
		}
		if f.ToDate != nil && DateKey(row.Date) > DateKey(*f.ToDate) {
			continue
		}
		if f.Month != nil && row.MonthKey() != *f.Month {
			continue
		}
		out = append(out, row)
	}
	return out
}

// LossSummary holds the signed aggregates of a loss-record subset.
// DriverLoss + CompanyLoss always equals TotalLoss exactly.
type LossSummary struct {
	TotalLoss   decimal.Decimal `json:"total_loss"`
	DriverLoss  decimal.Decimal `json:"driver_loss"`
	CompanyLoss decimal.Decimal `json:"company_loss"`
}

// SummarizeLoss aggregates a row subset. Company loss is everything under
// the sentinel driver; driver loss is the remainder.
func SummarizeLoss(rows []LossRecord) LossSummary {
	total := decimal.Zero
	company := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.LossAmount)
		if row.DriverName == ZeroCollectionDriver {
			company = company.Add(row.LossAmount)
		}
	}
	return LossSummary{
		TotalLoss:   total,
		DriverLoss:  total.Sub(company),
		CompanyLoss: company,
	}
}

// ForDisplay floors each aggregate at zero: a net surplus is shown as no
// loss. The signed values stay available on the original summary.
func (s LossSummary) ForDisplay() LossSummary {
	floor := func(d decimal.Decimal) decimal.Decimal {
		if d.IsNegative() {
			return decimal.Zero
		}
		return d
	}
	return LossSummary{
		TotalLoss:   floor(s.TotalLoss),
		DriverLoss:  floor(s.DriverLoss),
		CompanyLoss: floor(s.CompanyLoss),
	}
}
