package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"staysync/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	reservationsSheet = "Reservations"
	statsSheet        = "Stats"
)

// Report is the content of one xlsx export.
type Report struct {
	From, To     time.Time
	Properties   map[int64]string
	Reservations []*models.Reservation
	Stats        []models.MonthStats
}

// BuildWorkbook creates the reservations workbook. The caller closes it.
func BuildWorkbook(report Report) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(reservationsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(reservationsSheet, "A1", fmt.Sprintf("Period: %s - %s",
		report.From.Format("02.01.2006"), report.To.Format("02.01.2006")))
	_ = f.MergeCell(reservationsSheet, "A1", "L1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(reservationsSheet, "A1", "A1", titleStyle)

	headers := []string{"ID", "Property", "Guest", "Document", "Email", "Phone",
		"Check-in", "Check-out", "Nights", "Pax", "Paid", "Status"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(reservationsSheet, cell, h)
		_ = f.SetCellStyle(reservationsSheet, cell, cell, headerStyle)
	}

	paidStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
	})
	for i, r := range report.Reservations {
		row := i + 3
		values := []interface{}{
			r.ID,
			propertyName(report.Properties, r.PropertyID),
			r.Guest.Name,
			r.Guest.DocumentID,
			r.Guest.Email,
			r.Guest.Phone,
			models.FormatDate(r.CheckIn),
			models.FormatDate(r.CheckOut),
			len(r.Nights()),
			r.Pax,
			yesNo(r.Paid),
			stayState(r),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(reservationsSheet, cell, v)
		}
		if r.Paid {
			first, _ := excelize.CoordinatesToCellName(1, row)
			last, _ := excelize.CoordinatesToCellName(len(values), row)
			_ = f.SetCellStyle(reservationsSheet, first, last, paidStyle)
		}
	}
	_ = f.SetColWidth(reservationsSheet, "A", "B", 12)
	_ = f.SetColWidth(reservationsSheet, "C", "F", 22)
	_ = f.SetColWidth(reservationsSheet, "G", "L", 12)

	if len(report.Stats) > 0 {
		if err := writeStats(f, report.Stats); err != nil {
			f.Close()
			return nil, err
		}
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")
	return f, nil
}

// SaveWorkbook writes the report under dir and returns the file path.
func SaveWorkbook(dir string, report Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f, err := BuildWorkbook(report)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("reservations_%s_to_%s.xlsx",
		models.FormatDate(report.From), models.FormatDate(report.To))
	path := filepath.Join(dir, fileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func writeStats(f *excelize.File, stats []models.MonthStats) error {
	if _, err := f.NewSheet(statsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	for i, h := range []string{"Month", "Revenue", "Occupied days", "Days", "Occupancy %"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(statsSheet, cell, h)
	}
	for i, s := range stats {
		row := i + 2
		revenue, _ := s.Revenue.Float64()
		values := []interface{}{
			fmt.Sprintf("%d-%02d", s.Year, int(s.Month)),
			revenue,
			s.OccupiedDays,
			s.DaysInMonth,
			fmt.Sprintf("%.1f", s.Occupancy()),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(statsSheet, cell, v)
		}
	}
	return nil
}

func propertyName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func stayState(r *models.Reservation) string {
	switch {
	case r.CheckedOut:
		return "checked-out"
	case r.CheckedIn:
		return "checked-in"
	default:
		return "pending"
	}
}
