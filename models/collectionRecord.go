package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CollectionRecord is one cash-collection event for one vehicle on one
// calendar date.
//
// Grain: (vehicle_id, collection_date). The table is a snapshot: every
// refresh replaces the full set (see ReplaceCollectionSnapshot), there is
// no incremental update or deletion tracking.
type CollectionRecord struct {
	Id             int             `gorm:"primaryKey" json:"id"`
	VehicleId      string          `gorm:"size:64;index:idx_cr_vehicle_date,priority:1" json:"vehicle_id" validate:"required"`
	CollectionDate time.Time       `gorm:"index:idx_cr_vehicle_date,priority:2" json:"collection_date" validate:"required"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	MeterReading   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"meter_reading"`
	DriverName     *string         `gorm:"size:128" json:"driver_name"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// DateKey renders a calendar date as YYYY-MM-DD. Keys compare correctly
// as strings, which keeps date ordering independent of the location a
// time.Time happens to carry.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MonthKey is the YYYY-MM rollup key of the record's date.
func (r CollectionRecord) MonthKey() string {
	return r.CollectionDate.Format("2006-01")
}

func (r CollectionRecord) dateKey() string {
	return DateKey(r.CollectionDate)
}

// CollectionHistory is an immutable per-run snapshot of collection
// records, indexed for the gap and loss engines. Construction validates
// record structure and fails with one message per offending row.
type CollectionHistory struct {
	records    []CollectionRecord
	perVehicle map[string][]int
	byDay      map[string]struct{}
	vehicles   []string
	registered []string
}

// NewCollectionHistory validates and indexes a record set. registered is
// the vehicle registry (may include vehicles with no records yet); pass
// nil when no registry is available.
func NewCollectionHistory(records []CollectionRecord, registered []string) (*CollectionHistory, error) {
	var problems []string
	for i := range records {
		records[i].VehicleId = strings.TrimSpace(records[i].VehicleId)
		r := records[i]
		switch {
		case r.VehicleId == "":
			problems = append(problems, fmt.Sprintf("record %d: empty vehicle id (date=%s)", i, DateKey(r.CollectionDate)))
		case r.CollectionDate.IsZero():
			problems = append(problems, fmt.Sprintf("record %d: missing date (vehicle=%s)", i, r.VehicleId))
		case r.Amount.IsNegative():
			problems = append(problems, fmt.Sprintf("record %d: negative amount %s (vehicle=%s date=%s)",
				i, r.Amount.String(), r.VehicleId, DateKey(r.CollectionDate)))
		}
	}
	if len(problems) > 0 {
		return nil, errors.New("invalid collection records:\n" + strings.Join(problems, "\n"))
	}

	h := &CollectionHistory{
		records:    make([]CollectionRecord, len(records)),
		perVehicle: make(map[string][]int),
		byDay:      make(map[string]struct{}),
	}
	copy(h.records, records)
	sort.SliceStable(h.records, func(i, j int) bool {
		a, b := h.records[i], h.records[j]
		if a.VehicleId != b.VehicleId {
			return a.VehicleId < b.VehicleId
		}
		return a.dateKey() < b.dateKey()
	})
	for i := range h.records {
		r := h.records[i]
		h.perVehicle[r.VehicleId] = append(h.perVehicle[r.VehicleId], i)
		h.byDay[r.VehicleId+"|"+r.dateKey()] = struct{}{}
	}
	for v := range h.perVehicle {
		h.vehicles = append(h.vehicles, v)
	}
	sort.Strings(h.vehicles)

	for _, v := range registered {
		v = strings.TrimSpace(v)
		if v != "" {
			h.registered = append(h.registered, v)
		}
	}
	sort.Strings(h.registered)

	return h, nil
}

// Records returns the snapshot sorted by vehicle then date.
func (h *CollectionHistory) Records() []CollectionRecord {
	return h.records
}

// Vehicles returns the distinct vehicle ids that have at least one record.
func (h *CollectionHistory) Vehicles() []string {
	return h.vehicles
}

// HasRecord reports whether any record exists for the vehicle on the day.
func (h *CollectionHistory) HasRecord(vehicleId, dayKey string) bool {
	_, ok := h.byDay[vehicleId+"|"+dayKey]
	return ok
}

// VehiclesWithoutRecords lists registered vehicles with an empty history.
// They cannot produce a baseline and are excluded from gap tracking; the
// caller must surface them as a data-quality condition, not drop them.
func (h *CollectionHistory) VehiclesWithoutRecords() []string {
	var out []string
	for _, v := range h.registered {
		if _, ok := h.perVehicle[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func (h *CollectionHistory) vehicleRecords(vehicleId string) []CollectionRecord {
	idxs := h.perVehicle[vehicleId]
	out := make([]CollectionRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, h.records[i])
	}
	return out
}
