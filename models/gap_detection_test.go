package models_test

import (
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the gap
// semantics over in-memory histories: the dense calendar walk, the
// cutoff-dependent window end, last-known backfill and the zero streak.

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("bad test date %q: %v", value, err)
	}
	return d
}

func strPtr(s string) *string { return &s }

func record(t *testing.T, vehicle, date string, amount, meter int64, driver string) models.CollectionRecord {
	t.Helper()
	r := models.CollectionRecord{
		VehicleId:      vehicle,
		CollectionDate: mustDate(t, date),
		Amount:         decimal.NewFromInt(amount),
		MeterReading:   decimal.NewFromInt(meter),
	}
	if driver != "" {
		r.DriverName = strPtr(driver)
	}
	return r
}

func utcSettings(t *testing.T, start string) config.FleetSettings {
	t.Helper()
	return config.FleetSettings{
		StartDate:   mustDate(t, start),
		DailyTarget: decimal.NewFromInt(300),
		CutoffHour:  16,
		Timezone:    "UTC",
	}
}

func mustHistory(t *testing.T, records []models.CollectionRecord, registered []string) *models.CollectionHistory {
	t.Helper()
	h, err := models.NewCollectionHistory(records, registered)
	if err != nil {
		t.Fatalf("NewCollectionHistory: %v", err)
	}
	return h
}

func gapDates(report *models.GapReport, vehicle string) map[string]int {
	out := map[string]int{}
	for _, e := range report.Entries {
		if e.VehicleId == vehicle {
			out[models.DateKey(e.MissingDate)]++
		}
	}
	return out
}

func TestDetectGaps_CompletenessAndSoundness(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-08-01", 300, 1000, "Aung"),
		record(t, "MM-1001", "2025-08-03", 280, 1040, "Aung"),
		record(t, "MM-2002", "2025-08-05", 300, 500, "Kyaw"),
	}, nil)

	now := time.Date(2025, 8, 10, 17, 0, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, utcSettings(t, "2025-08-01"), now)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}

	first := gapDates(report, "MM-1001")
	wantFirst := []string{"2025-08-02", "2025-08-04", "2025-08-05", "2025-08-06", "2025-08-07", "2025-08-08", "2025-08-09", "2025-08-10"}
	if len(first) != len(wantFirst) {
		t.Fatalf("MM-1001 gap count: expected %d, got %d (%v)", len(wantFirst), len(first), first)
	}
	for _, d := range wantFirst {
		if first[d] != 1 {
			t.Fatalf("MM-1001: expected exactly one gap on %s, got %d", d, first[d])
		}
	}
	for _, d := range []string{"2025-08-01", "2025-08-03"} {
		if first[d] != 0 {
			t.Fatalf("MM-1001: gap emitted on %s where a record exists", d)
		}
	}

	// MM-2002's baseline is its first record date, so nothing before 08-05.
	second := gapDates(report, "MM-2002")
	for d := range second {
		if d < "2025-08-06" {
			t.Fatalf("MM-2002: gap %s precedes the vehicle baseline", d)
		}
	}
	if len(second) != 5 {
		t.Fatalf("MM-2002 gap count: expected 5, got %d (%v)", len(second), second)
	}
}

func TestDetectGaps_CutoffBoundary(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-08-01", 300, 1000, "Aung"),
	}, nil)
	settings := utcSettings(t, "2025-08-01")

	before := time.Date(2025, 8, 10, 15, 59, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, settings, before)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	if got := models.DateKey(report.WindowEnd); got != "2025-08-09" {
		t.Fatalf("window end at 15:59: expected 2025-08-09, got %s", got)
	}
	if gaps := gapDates(report, "MM-1001"); gaps["2025-08-10"] != 0 {
		t.Fatalf("today must not be tracked before the cutoff hour")
	}

	after := time.Date(2025, 8, 10, 16, 0, 0, 0, time.UTC)
	report, err = models.DetectGaps(h, settings, after)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	if got := models.DateKey(report.WindowEnd); got != "2025-08-10" {
		t.Fatalf("window end at 16:00: expected 2025-08-10, got %s", got)
	}
	if gaps := gapDates(report, "MM-1001"); gaps["2025-08-10"] != 1 {
		t.Fatalf("today must be tracked from the cutoff hour on")
	}
}

func TestTrackingWindowEnd_OperatingTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	// 09:29 UTC is 15:59 in Yangon (+06:30); 09:30 UTC is 16:00.
	before := time.Date(2025, 8, 10, 9, 29, 0, 0, time.UTC)
	if got := models.DateKey(models.TrackingWindowEnd(before, 16, loc)); got != "2025-08-09" {
		t.Fatalf("window end at 15:59 local: expected 2025-08-09, got %s", got)
	}
	after := time.Date(2025, 8, 10, 9, 30, 0, 0, time.UTC)
	if got := models.DateKey(models.TrackingWindowEnd(after, 16, loc)); got != "2025-08-10" {
		t.Fatalf("window end at 16:00 local: expected 2025-08-10, got %s", got)
	}
}

func TestDetectGaps_LastKnownBackfill(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-08-01", 500, 1200, "Aung"),
		record(t, "MM-1001", "2025-08-02", 0, 1200, "Aung"),
	}, nil)

	now := time.Date(2025, 8, 3, 17, 0, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, utcSettings(t, "2025-08-01"), now)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}

	if len(report.Entries) != 1 {
		t.Fatalf("expected exactly one gap, got %d", len(report.Entries))
	}
	e := report.Entries[0]
	if models.DateKey(e.MissingDate) != "2025-08-03" {
		t.Fatalf("expected gap on 2025-08-03, got %s", models.DateKey(e.MissingDate))
	}
	if e.LastCollectionDate == nil || models.DateKey(*e.LastCollectionDate) != "2025-08-01" {
		t.Fatalf("last collection date: expected 2025-08-01, got %v", e.LastCollectionDate)
	}
	if e.LastCollectedAmount == nil || !e.LastCollectedAmount.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("last collected amount: expected 500, got %v", e.LastCollectedAmount)
	}
	if e.LastMeterReading == nil || !e.LastMeterReading.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("last meter reading: expected 1200, got %v", e.LastMeterReading)
	}
	if e.LastDriverName == nil || *e.LastDriverName != "Aung" {
		t.Fatalf("last driver: expected Aung, got %v", e.LastDriverName)
	}
	if e.ZeroStreakDays != 1 {
		t.Fatalf("zero streak: expected 1, got %d", e.ZeroStreakDays)
	}
}

func TestDetectGaps_NoPositiveCollectionYet(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-08-01", 0, 0, "Aung"),
		record(t, "MM-1001", "2025-08-02", 0, 0, "Aung"),
	}, nil)

	now := time.Date(2025, 8, 3, 17, 0, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, utcSettings(t, "2025-08-01"), now)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	if len(report.Entries) != 1 {
		t.Fatalf("expected one gap, got %d", len(report.Entries))
	}
	e := report.Entries[0]
	if e.LastCollectionDate != nil || e.LastCollectedAmount != nil || e.LastMeterReading != nil || e.LastDriverName != nil {
		t.Fatalf("last-known fields must all be nil without a positive collection: %+v", e)
	}
	if e.ZeroStreakDays != 2 {
		t.Fatalf("zero streak without prior collection: expected 2, got %d", e.ZeroStreakDays)
	}
}

func TestDetectGaps_EmptyWindowIsNotAnError(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-08-01", 300, 1000, "Aung"),
	}, nil)

	// Start date in the future inverts the window.
	now := time.Date(2025, 8, 10, 17, 0, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, utcSettings(t, "2025-09-01"), now)
	if err != nil {
		t.Fatalf("inverted window must not error: %v", err)
	}
	if len(report.Entries) != 0 {
		t.Fatalf("inverted window must yield no entries, got %d", len(report.Entries))
	}
}

func TestDetectGaps_RejectsRunawayWindow(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2001-01-05", 300, 1000, "Aung"),
	}, nil)

	now := time.Date(2025, 8, 10, 17, 0, 0, 0, time.UTC)
	if _, err := models.DetectGaps(h, utcSettings(t, "2001-01-01"), now); err == nil {
		t.Fatalf("expected an error for a multi-decade window")
	}
}

func TestDetectGaps_SurfacesVehiclesWithoutHistory(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-08-01", 300, 1000, "Aung"),
	}, []string{"MM-1001", "MM-9999"})

	now := time.Date(2025, 8, 2, 17, 0, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, utcSettings(t, "2025-08-01"), now)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	if len(report.VehiclesWithoutHistory) != 1 || report.VehiclesWithoutHistory[0] != "MM-9999" {
		t.Fatalf("expected MM-9999 flagged as having no history, got %v", report.VehiclesWithoutHistory)
	}
	if gaps := gapDates(report, "MM-9999"); len(gaps) != 0 {
		t.Fatalf("a vehicle without history must produce no gap entries, got %v", gaps)
	}
}

func TestDetectGaps_OrderedByDateThenVehicle(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-2002", "2025-08-01", 300, 500, "Kyaw"),
		record(t, "MM-1001", "2025-08-01", 300, 1000, "Aung"),
	}, nil)

	now := time.Date(2025, 8, 4, 17, 0, 0, 0, time.UTC)
	report, err := models.DetectGaps(h, utcSettings(t, "2025-08-01"), now)
	if err != nil {
		t.Fatalf("DetectGaps: %v", err)
	}
	for i := 1; i < len(report.Entries); i++ {
		prev, cur := report.Entries[i-1], report.Entries[i]
		pk, ck := models.DateKey(prev.MissingDate), models.DateKey(cur.MissingDate)
		if pk > ck || (pk == ck && prev.VehicleId > cur.VehicleId) {
			t.Fatalf("entries out of order at %d: (%s %s) before (%s %s)", i, pk, prev.VehicleId, ck, cur.VehicleId)
		}
	}
}

func TestResolveBaselines_ClampsToStartDate(t *testing.T) {
	h := mustHistory(t, []models.CollectionRecord{
		record(t, "MM-1001", "2025-07-15", 300, 1000, "Aung"),
		record(t, "MM-2002", "2025-08-05", 300, 500, "Kyaw"),
	}, nil)

	baselines := models.ResolveBaselines(h, mustDate(t, "2025-08-01"))
	if got := models.DateKey(baselines["MM-1001"]); got != "2025-08-01" {
		t.Fatalf("baseline before start date must clamp: expected 2025-08-01, got %s", got)
	}
	if got := models.DateKey(baselines["MM-2002"]); got != "2025-08-05" {
		t.Fatalf("baseline after start date must stay: expected 2025-08-05, got %s", got)
	}
}

func TestNewCollectionHistory_RejectsMalformedRecords(t *testing.T) {
	bad := []models.CollectionRecord{
		{VehicleId: "  ", CollectionDate: mustDate(t, "2025-08-01"), Amount: decimal.NewFromInt(100)},
		{VehicleId: "MM-1001", Amount: decimal.NewFromInt(100)},
		{VehicleId: "MM-1001", CollectionDate: mustDate(t, "2025-08-02"), Amount: decimal.NewFromInt(-5)},
	}
	_, err := models.NewCollectionHistory(bad, nil)
	if err == nil {
		t.Fatalf("expected structural validation to fail")
	}
	msg := err.Error()
	for _, fragment := range []string{"empty vehicle id", "missing date", "negative amount"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("error must report %q, got: %s", fragment, msg)
		}
	}
}
