// Package export renders creator earnings statements as Excel workbooks.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trustmeet/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	statementSheet = "Earnings"
	summarySheet   = "Summary"
	dateTimeLayout = "2006-01-02 15:04"
)

// StatementWriter saves statements under dir.
type StatementWriter struct {
	dir    string
	logger *zerolog.Logger
	now    func() time.Time
}

func NewStatementWriter(dir string, logger *zerolog.Logger) *StatementWriter {
	return &StatementWriter{dir: dir, logger: logger, now: time.Now}
}

// WriteStatement creates a workbook with one line per earning and a summary sheet.
// Amounts are written in minor units.
func (w *StatementWriter) WriteStatement(
	creator *models.Creator,
	stats *models.CreatorStats,
	earnings []*models.Earning,
	from, to time.Time,
) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(statementSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(statementSheet, "A1", fmt.Sprintf("%s: %s", creator.DisplayName, periodLabel(from, to)))
	_ = f.MergeCell(statementSheet, "A1", "E1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(statementSheet, "A1", "A1", titleStyle)

	headers := []string{"Date", "Source", "Reference", "Client", "Amount"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(statementSheet, cell, h)
		_ = f.SetCellStyle(statementSheet, cell, cell, headerStyle)
	}

	var total int64
	row := 3
	for _, e := range earnings {
		values := []interface{}{
			e.CreatedAt.Format(dateTimeLayout),
			e.Source,
			e.Reference,
			e.ClientID,
			e.Amount,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(statementSheet, cell, v)
		}
		total += e.Amount
		row++
	}

	totalLabel, _ := excelize.CoordinatesToCellName(4, row)
	totalCell, _ := excelize.CoordinatesToCellName(5, row)
	_ = f.SetCellValue(statementSheet, totalLabel, "Total")
	_ = f.SetCellValue(statementSheet, totalCell, total)
	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	_ = f.SetCellStyle(statementSheet, totalLabel, totalCell, boldStyle)

	_ = f.SetColWidth(statementSheet, "A", "A", 18)
	_ = f.SetColWidth(statementSheet, "B", "B", 12)
	_ = f.SetColWidth(statementSheet, "C", "C", 24)
	_ = f.SetColWidth(statementSheet, "D", "E", 14)

	if err := writeSummary(f, stats); err != nil {
		return "", err
	}

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("statement_%d_%s.xlsx", creator.ID, w.now().Format("20060102_150405"))
	filePath := filepath.Join(w.dir, fileName)
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	w.logger.Info().Str("file_path", filePath).Int("lines", len(earnings)).Msg("Excel statement created")
	return filePath, nil
}

func writeSummary(f *excelize.File, stats *models.CreatorStats) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	if stats == nil {
		stats = &models.CreatorStats{}
	}
	rows := [][]interface{}{
		{"Total earnings", stats.TotalEarnings},
		{"Completed bookings", stats.CompletedBookings},
		{"Photo unlocks", stats.PhotoUnlocks},
		{"Contact unlocks", stats.ContactUnlocks},
	}
	for i, r := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &r); err != nil {
			return fmt.Errorf("error writing summary: %w", err)
		}
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 22)
	return nil
}

func periodLabel(from, to time.Time) string {
	switch {
	case from.IsZero() && to.IsZero():
		return "all time"
	case from.IsZero():
		return "until " + to.Format(models.DateLayout)
	case to.IsZero():
		return "since " + from.Format(models.DateLayout)
	default:
		return from.Format(models.DateLayout) + " - " + to.Format(models.DateLayout)
	}
}
