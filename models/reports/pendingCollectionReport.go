package reports

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/shopspring/decimal"
)

// PendingCollectionResponse is one gap row shaped for the API and the
// Excel export. Dates are rendered as YYYY-MM-DD.
type PendingCollectionResponse struct {
	MissingDate         string           `json:"missing_date"`
	VehicleId           string           `json:"vehicle_id"`
	LastCollectionDate  *string          `json:"last_collection_date"`
	LastCollectedAmount *decimal.Decimal `json:"last_collected_amount"`
	LastMeterReading    *decimal.Decimal `json:"last_meter_reading"`
	LastDriverName      *string          `json:"last_driver_name"`
	ZeroStreakDays      int              `json:"zero_streak_days"`
}

// PendingCollectionReportResponse wraps the rows with the data-quality
// warnings the operator needs alongside them.
type PendingCollectionReportResponse struct {
	WindowStart            string                       `json:"window_start"`
	WindowEnd              string                       `json:"window_end"`
	Rows                   []*PendingCollectionResponse `json:"rows"`
	VehiclesWithoutHistory []string                     `json:"vehicles_without_history"`
}

// GetPendingCollectionReport recomputes the gap report from the current
// snapshot. Nothing is persisted; an empty row set is a legitimate result.
func GetPendingCollectionReport(ctx context.Context, settings config.FleetSettings, now time.Time) (*PendingCollectionReportResponse, error) {
	history, err := models.LoadCollectionHistory(ctx)
	if err != nil {
		return nil, err
	}

	report, err := models.DetectGaps(history, settings, now)
	if err != nil {
		return nil, err
	}

	resp := &PendingCollectionReportResponse{
		WindowStart:            models.DateKey(report.WindowStart),
		WindowEnd:              models.DateKey(report.WindowEnd),
		Rows:                   make([]*PendingCollectionResponse, 0, len(report.Entries)),
		VehiclesWithoutHistory: report.VehiclesWithoutHistory,
	}
	for _, e := range report.Entries {
		row := &PendingCollectionResponse{
			MissingDate:         models.DateKey(e.MissingDate),
			VehicleId:           e.VehicleId,
			LastCollectedAmount: e.LastCollectedAmount,
			LastMeterReading:    e.LastMeterReading,
			LastDriverName:      e.LastDriverName,
			ZeroStreakDays:      e.ZeroStreakDays,
		}
		if e.LastCollectionDate != nil {
			d := models.DateKey(*e.LastCollectionDate)
			row.LastCollectionDate = &d
		}
		resp.Rows = append(resp.Rows, row)
	}

	return resp, nil
}
