package export

import (
	"testing"
	"time"

	"trustmeet/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteStatement(t *testing.T) {
	logger := zerolog.Nop()
	w := NewStatementWriter(t.TempDir(), &logger)
	w.now = func() time.Time { return time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC) }

	creator := &models.Creator{ID: 7, DisplayName: "Nova"}
	stats := &models.CreatorStats{CreatorID: 7, TotalEarnings: 87200, CompletedBookings: 1, PhotoUnlocks: 1, ContactUnlocks: 1}
	created := time.Date(2026, 9, 15, 18, 30, 0, 0, time.UTC)
	earnings := []*models.Earning{
		{CreatorID: 7, ClientID: 1, Source: models.EarningUnlock, Reference: "unlock:1:photos", Amount: 2700, CreatedAt: created},
		{CreatorID: 7, ClientID: 1, Source: models.EarningUnlock, Reference: "unlock:2:contact", Amount: 4500, CreatedAt: created},
		{CreatorID: 7, ClientID: 1, Source: models.EarningBooking, Reference: "booking:1", Amount: 80000, CreatedAt: created},
	}

	path, err := w.WriteStatement(creator, stats, earnings, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, path, "statement_7_20261001_090000.xlsx")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{statementSheet, summarySheet}, f.GetSheetList())

	title, err := f.GetCellValue(statementSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Nova: since 2026-09-01", title)

	source, err := f.GetCellValue(statementSheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, models.EarningBooking, source)

	total, err := f.GetCellValue(statementSheet, "E6")
	require.NoError(t, err)
	assert.Equal(t, "87200", total)

	completed, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", completed)
}

func TestPeriodLabel(t *testing.T) {
	d := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "all time", periodLabel(time.Time{}, time.Time{}))
	assert.Equal(t, "until 2026-01-02", periodLabel(time.Time{}, d))
	assert.Equal(t, "2026-01-02 - 2026-01-02", periodLabel(d, d))
}
