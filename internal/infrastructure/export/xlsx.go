// Package export renders back-office listings as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of the generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PaymentsSheet is the worksheet holding payment reports
const PaymentsSheet = "Payments"

// PaymentRow is one payment report line of the export
type PaymentRow struct {
	ReportID    string
	TenantSlug  string
	TenantName  string
	Amount      decimal.Decimal
	Currency    string
	PaymentDate time.Time
	Method      string
	PlanCode    string
	Status      string
	HasProof    bool
	Note        string
	AdminNote   string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// PaymentHeader is the header row of the payments sheet
var PaymentHeader = []string{
	"Report ID",
	"Tenant",
	"Company",
	"Amount",
	"Currency",
	"Payment Date",
	"Method",
	"Plan",
	"Status",
	"Proof",
	"Note",
	"Admin Note",
	"Reported At",
	"Confirmed At",
}

var paymentColumnWidths = []float64{38, 18, 30, 12, 10, 14, 24, 24, 12, 8, 40, 40, 20, 20}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// PaymentsWorkbook renders rows into an XLSX file
func PaymentsWorkbook(rows []PaymentRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(PaymentsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("create amount style: %w", err)
	}

	if err := writeRow(f, 1, toAny(PaymentHeader)); err != nil {
		return nil, err
	}
	lastCol, err := excelize.ColumnNumberToName(len(PaymentHeader))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(PaymentsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}
	for i, width := range paymentColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(PaymentsSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, r := range rows {
		line := i + 2
		if err := writeRow(f, line, paymentValues(r)); err != nil {
			return nil, err
		}
		cell := fmt.Sprintf("D%d", line)
		if err := f.SetCellStyle(PaymentsSheet, cell, cell, amountStyle); err != nil {
			return nil, fmt.Errorf("set amount style: %w", err)
		}
	}
	if err := f.SetPanes(PaymentsSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func paymentValues(r PaymentRow) []any {
	proof := "no"
	if r.HasProof {
		proof = "yes"
	}
	confirmed := ""
	if r.ConfirmedAt != nil {
		confirmed = r.ConfirmedAt.Format(dateTimeLayout)
	}
	amount, _ := r.Amount.Float64()
	return []any{
		r.ReportID,
		r.TenantSlug,
		r.TenantName,
		amount,
		r.Currency,
		r.PaymentDate.Format(dateLayout),
		r.Method,
		r.PlanCode,
		r.Status,
		proof,
		r.Note,
		r.AdminNote,
		r.CreatedAt.Format(dateTimeLayout),
		confirmed,
	}
}

func writeRow(f *excelize.File, line int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(PaymentsSheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", line, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
