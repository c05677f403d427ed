package models

import (
	"fmt"
	"sort"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"github.com/shopspring/decimal"
)

// maxTrackingWindowDays caps the dense calendar walk. A window past ten
// years means FLEET_START_DATE is misconfigured, not that the operation
// has been running that long.
const maxTrackingWindowDays = 3660

// GapEntry marks one (vehicle, date) pair where a collection entry was
// expected but none exists. The Last* fields come from the most recent
// record strictly before MissingDate with a positive amount; all nil when
// the vehicle has no positive collection before the gap.
type GapEntry struct {
	MissingDate         time.Time        `json:"missing_date"`
	VehicleId           string           `json:"vehicle_id"`
	LastMeterReading    *decimal.Decimal `json:"last_meter_reading"`
	LastDriverName      *string          `json:"last_driver_name"`
	LastCollectedAmount *decimal.Decimal `json:"last_collected_amount"`
	LastCollectionDate  *time.Time       `json:"last_collection_date"`
	// ZeroStreakDays counts records dated after LastCollectionDate and
	// before MissingDate whose amount is exactly zero. A zero-amount entry
	// is a different state from a missing one.
	ZeroStreakDays int `json:"zero_streak_days"`
}

// GapReport is the gap detector output. Entries are transient: recomputed
// per request, never persisted.
type GapReport struct {
	Entries []GapEntry `json:"entries"`
	// VehiclesWithoutHistory are registered vehicles with no records at
	// all. They have no baseline and are excluded from Entries.
	VehiclesWithoutHistory []string  `json:"vehicles_without_history"`
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
}

// ResolveBaselines computes, per vehicle with records, the first date it
// counts as active: max(startDate, earliest record date).
func ResolveBaselines(h *CollectionHistory, startDate time.Time) map[string]time.Time {
	startKey := DateKey(startDate)
	out := make(map[string]time.Time, len(h.vehicles))
	for _, v := range h.vehicles {
		recs := h.vehicleRecords(v)
		first := recs[0].CollectionDate
		if DateKey(first) < startKey {
			first = startDate
		}
		out[v] = first
	}
	return out
}

// TrackingWindowEnd resolves the last date collections are expected to be
// complete for. Today's entries trickle in until late afternoon, so today
// only joins the window once the local clock reaches the cutoff hour;
// before that the window ends yesterday.
func TrackingWindowEnd(now time.Time, cutoffHour int, loc *time.Location) time.Time {
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if local.Hour() >= cutoffHour {
		return day
	}
	return day.AddDate(0, 0, -1)
}

// DetectGaps walks the dense date grid from the fleet start date through
// the tracking window end and emits a GapEntry for every active vehicle
// day with no record. Gaps are defined by absence, so the walk enumerates
// the full expected calendar rather than diffing record sets.
//
// Entries are ordered by date then vehicle id. An inverted window is a
// valid empty result, not an error.
func DetectGaps(h *CollectionHistory, settings config.FleetSettings, now time.Time) (*GapReport, error) {
	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}

	windowEnd := TrackingWindowEnd(now, settings.CutoffHour, loc)
	start := settings.StartDate.In(loc)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	report := &GapReport{
		VehiclesWithoutHistory: h.VehiclesWithoutRecords(),
		WindowStart:            start,
		WindowEnd:              windowEnd,
	}
	endKey := DateKey(windowEnd)
	if endKey < DateKey(start) {
		return report, nil
	}
	if days := int(windowEnd.Sub(start).Hours()/24) + 1; days > maxTrackingWindowDays {
		return nil, fmt.Errorf("tracking window %s..%s spans %d days (max %d); check FLEET_START_DATE",
			DateKey(start), endKey, days, maxTrackingWindowDays)
	}

	baselines := ResolveBaselines(h, start)
	for _, vehicle := range h.vehicles {
		recs := h.vehicleRecords(vehicle)
		baseline := baselines[vehicle]
		day := time.Date(baseline.Year(), baseline.Month(), baseline.Day(), 0, 0, 0, 0, loc)

		var lastPositive *CollectionRecord
		zeroStreak := 0
		next := 0

		for dayKey := DateKey(day); dayKey <= endKey; day, dayKey = day.AddDate(0, 0, 1), DateKey(day.AddDate(0, 0, 1)) {
			// Fold records strictly before this day into the running
			// last-known state.
			for next < len(recs) && recs[next].dateKey() < dayKey {
				r := recs[next]
				if r.Amount.IsPositive() {
					lastPositive = &recs[next]
					zeroStreak = 0
				} else if r.Amount.IsZero() {
					zeroStreak++
				}
				next++
			}

			if h.HasRecord(vehicle, dayKey) {
				continue
			}

			entry := GapEntry{
				MissingDate:    day,
				VehicleId:      vehicle,
				ZeroStreakDays: zeroStreak,
			}
			if lastPositive != nil {
				reading := lastPositive.MeterReading
				amount := lastPositive.Amount
				date := lastPositive.CollectionDate
				entry.LastMeterReading = &reading
				entry.LastCollectedAmount = &amount
				entry.LastCollectionDate = &date
				entry.LastDriverName = lastPositive.DriverName
			}
			report.Entries = append(report.Entries, entry)
		}
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		ak, bk := DateKey(a.MissingDate), DateKey(b.MissingDate)
		if ak != bk {
			return ak < bk
		}
		return a.VehicleId < b.VehicleId
	})

	return report, nil
}
