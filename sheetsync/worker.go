package sheetsync

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sheet columns, in order: Date | Vehicle | Amount | Meter | Driver.
const (
	colDate = iota
	colVehicle
	colAmount
	colMeter
	colDriver
)

// sheetRow is the structural shape a row must satisfy before it becomes
// a collection record. Amount/meter cells are coerced separately.
type sheetRow struct {
	Date      string `validate:"required"`
	VehicleId string `validate:"required"`
}

// SyncResult summarizes one sheet pull.
type SyncResult struct {
	RowsRead        int `json:"rows_read"`
	RecordsImported int `json:"records_imported"`
	RowsSkipped     int `json:"rows_skipped"`
	ValuesCoerced   int `json:"values_coerced"`
}

// Worker pulls the collection sheet and replaces the record snapshot.
// Each run is a full refresh; the sheet is the source of truth.
type Worker struct {
	logger   *logrus.Logger
	timezone string
}

func NewWorker(logger *logrus.Logger, timezone string) *Worker {
	return &Worker{logger: logger, timezone: timezone}
}

// RunOnce fetches the sheet, normalizes the rows and swaps the snapshot.
// Rows with a missing vehicle or an unparseable date are dropped with a
// warning, never imported half-formed; unparseable amount/meter cells
// coerce to zero.
func (w *Worker) RunOnce(ctx context.Context) (*SyncResult, error) {
	client, err := newSheetClient(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := client.fetchRows(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{RowsRead: len(rows)}
	records := make([]models.CollectionRecord, 0, len(rows))
	for i, cells := range rows {
		record, coerced, err := w.normalizeRow(cells)
		if err != nil {
			result.RowsSkipped++
			w.logger.WithFields(logrus.Fields{
				"module": "sheetsync",
				"row":    i + 2, // sheet rows are 1-based and row 1 is the header
			}).Warn("skipping sheet row: " + err.Error())
			continue
		}
		result.ValuesCoerced += coerced
		records = append(records, *record)
	}

	if err := models.ReplaceCollectionSnapshot(ctx, records); err != nil {
		return nil, err
	}
	result.RecordsImported = len(records)

	w.logger.WithFields(logrus.Fields{
		"module":   "sheetsync",
		"read":     result.RowsRead,
		"imported": result.RecordsImported,
		"skipped":  result.RowsSkipped,
		"coerced":  result.ValuesCoerced,
	}).Info("collection snapshot refreshed")

	return result, nil
}

// normalizeRow turns one sheet row into a record. The second return value
// counts amount/meter cells that failed to parse and were coerced to zero.
func (w *Worker) normalizeRow(cells []interface{}) (*models.CollectionRecord, int, error) {
	row := sheetRow{
		Date:      cellString(cells, colDate),
		VehicleId: strings.TrimSpace(cellString(cells, colVehicle)),
	}
	if err := utils.ValidateStruct(row); err != nil {
		return nil, 0, fmt.Errorf("incomplete row %v: %v", utils.ProcessValidationErrors(err), err)
	}

	date, err := utils.ParseDate(row.Date, w.timezone)
	if err != nil {
		return nil, 0, fmt.Errorf("vehicle %s: %w", row.VehicleId, err)
	}

	coerced := 0
	amount, err := utils.ParseDecimal(cellString(cells, colAmount))
	if err != nil {
		amount = decimal.Zero
		coerced++
	}
	if amount.IsNegative() {
		return nil, coerced, fmt.Errorf("vehicle %s date %s: negative amount %s",
			row.VehicleId, models.DateKey(date), amount.String())
	}

	meter, err := utils.ParseDecimal(cellString(cells, colMeter))
	if err != nil {
		meter = decimal.Zero
		coerced++
	}

	record := &models.CollectionRecord{
		VehicleId:      row.VehicleId,
		CollectionDate: date,
		Amount:         amount,
		MeterReading:   meter,
	}
	if driver := strings.TrimSpace(cellString(cells, colDriver)); driver != "" {
		record.DriverName = &driver
	}

	return record, coerced, nil
}

func cellString(cells []interface{}, idx int) string {
	if idx >= len(cells) || cells[idx] == nil {
		return ""
	}
	return fmt.Sprintf("%v", cells[idx])
}
