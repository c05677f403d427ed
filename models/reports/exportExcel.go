package reports

import (
	"fmt"
	"io"

	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// WritePendingCollectionsExcel renders the gap report as a worksheet.
func WritePendingCollectionsExcel(w io.Writer, report *PendingCollectionReportResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	// Add headers
	f.SetCellValue(sheet, "A1", "MissingDate")
	f.SetCellValue(sheet, "B1", "VehicleId")
	f.SetCellValue(sheet, "C1", "LastCollectionDate")
	f.SetCellValue(sheet, "D1", "LastCollectedAmount")
	f.SetCellValue(sheet, "E1", "LastMeterReading")
	f.SetCellValue(sheet, "F1", "LastDriverName")
	f.SetCellValue(sheet, "G1", "ZeroStreakDays")

	// Add data
	for i, row := range report.Rows {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), row.MissingDate)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), row.VehicleId)
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+2), utils.DereferencePtr(row.LastCollectionDate, ""))
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+2), decimalCell(row.LastCollectedAmount))
		f.SetCellValue(sheet, "E"+fmt.Sprint(i+2), decimalCell(row.LastMeterReading))
		f.SetCellValue(sheet, "F"+fmt.Sprint(i+2), utils.DereferencePtr(row.LastDriverName, ""))
		f.SetCellValue(sheet, "G"+fmt.Sprint(i+2), row.ZeroStreakDays)
	}

	return f.Write(w)
}

// WriteLossMatrixExcel renders the loss matrix with a summary block on top.
func WriteLossMatrixExcel(w io.Writer, report *LossMatrixReportResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"

	f.SetCellValue(sheet, "A1", "TotalLoss")
	f.SetCellValue(sheet, "B1", report.Summary.TotalLoss.String())
	f.SetCellValue(sheet, "A2", "DriverLoss")
	f.SetCellValue(sheet, "B2", report.Summary.DriverLoss.String())
	f.SetCellValue(sheet, "A3", "CompanyLoss")
	f.SetCellValue(sheet, "B3", report.Summary.CompanyLoss.String())

	f.SetCellValue(sheet, "A5", "Date")
	f.SetCellValue(sheet, "B5", "VehicleId")
	f.SetCellValue(sheet, "C5", "DriverName")
	f.SetCellValue(sheet, "D5", "LossAmount")

	for i, row := range report.Rows {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+6), row.Date)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+6), row.VehicleId)
		f.SetCellValue(sheet, "C"+fmt.Sprint(i+6), row.DriverName)
		f.SetCellValue(sheet, "D"+fmt.Sprint(i+6), row.LossAmount.String())
	}

	return f.Write(w)
}

func decimalCell(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
