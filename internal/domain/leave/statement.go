package leave

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Statement renders an employee's balances and requests for one year as a PDF.
func (s *Service) Statement(ctx context.Context, employeeID, employeeName string, year int) ([]byte, error) {
	balances, err := s.Store.ListBalances(ctx, employeeID, year)
	if err != nil {
		return nil, err
	}
	types, err := s.Store.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(types))
	for _, lt := range types {
		names[lt.ID] = lt.Name
	}
	requests, err := s.Store.ListRequests(ctx, RequestFilter{EmployeeID: employeeID, Limit: 500})
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Leave statement %d", year))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", employeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", s.now().Format(time.DateOnly)))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 11)
	for _, header := range []string{"Type", "Allocated", "Carry-over", "Adjustment", "Used", "Pending", "Available"} {
		pdf.CellFormat(26, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, b := range balances {
		cells := []string{
			names[b.LeaveTypeID],
			b.Allocated.StringFixed(2),
			b.CarryOver.StringFixed(2),
			b.Adjustment.StringFixed(2),
			b.Used.StringFixed(2),
			b.Pending.StringFixed(2),
			b.Available().StringFixed(2),
		}
		for i, cell := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(26, 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
		if b.ExpiryDate != nil && b.CarryOver.IsPositive() {
			pdf.Cell(0, 6, fmt.Sprintf("  Carry-over expires %s", b.ExpiryDate.Format(time.DateOnly)))
			pdf.Ln(6)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Requests")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range requests {
		if r.StartDate.Year() != year {
			continue
		}
		pdf.Cell(0, 6, fmt.Sprintf("%s  %s  %s days  %s", describePeriod(r), names[r.LeaveTypeID], r.Days.StringFixed(2), r.Status))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
