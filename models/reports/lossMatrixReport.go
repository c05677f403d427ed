package reports

import (
	"context"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/shopspring/decimal"
)

// LossMatrixRowResponse is one loss-matrix row shaped for the API.
type LossMatrixRowResponse struct {
	Date       string          `json:"date"`
	VehicleId  string          `json:"vehicle_id"`
	DriverName string          `json:"driver_name"`
	LossAmount decimal.Decimal `json:"loss_amount"`
}

// LossSummaryResponse carries both the display (floored-at-zero) and the
// signed aggregates; downstream math needs the signed ones.
type LossSummaryResponse struct {
	TotalLoss         decimal.Decimal `json:"total_loss"`
	DriverLoss        decimal.Decimal `json:"driver_loss"`
	CompanyLoss       decimal.Decimal `json:"company_loss"`
	SignedTotalLoss   decimal.Decimal `json:"signed_total_loss"`
	SignedDriverLoss  decimal.Decimal `json:"signed_driver_loss"`
	SignedCompanyLoss decimal.Decimal `json:"signed_company_loss"`
}

// LossMatrixReportResponse is the loss matrix plus its aggregates over
// the requested filter.
type LossMatrixReportResponse struct {
	Rows    []*LossMatrixRowResponse `json:"rows"`
	Summary LossSummaryResponse      `json:"summary"`
}

// GetLossMatrixReport recomputes the loss matrix from the current
// snapshot and aggregates it over the caller's filter. The unfiltered
// matrix is always rebuilt first: reallocation looks at whole days, so
// filtering before the transform would change the pooling.
func GetLossMatrixReport(ctx context.Context, settings config.FleetSettings, filter models.LossFilter) (*LossMatrixReportResponse, error) {
	history, err := models.LoadCollectionHistory(ctx)
	if err != nil {
		return nil, err
	}

	rows := models.FilterLossRecords(models.BuildLossMatrix(history, settings.DailyTarget), filter)
	summary := models.SummarizeLoss(rows)
	display := summary.ForDisplay()

	resp := &LossMatrixReportResponse{
		Rows: make([]*LossMatrixRowResponse, 0, len(rows)),
		Summary: LossSummaryResponse{
			TotalLoss:         display.TotalLoss,
			DriverLoss:        display.DriverLoss,
			CompanyLoss:       display.CompanyLoss,
			SignedTotalLoss:   summary.TotalLoss,
			SignedDriverLoss:  summary.DriverLoss,
			SignedCompanyLoss: summary.CompanyLoss,
		},
	}
	for _, r := range rows {
		resp.Rows = append(resp.Rows, &LossMatrixRowResponse{
			Date:       models.DateKey(r.Date),
			VehicleId:  r.VehicleId,
			DriverName: r.DriverName,
			LossAmount: r.LossAmount,
		})
	}

	return resp, nil
}
