package codes

import (
	"regexp"
	"testing"
	"time"

	"trustmeet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{in: "2:00 PM", hour: 14, minute: 0},
		{in: "12:00 AM", hour: 0, minute: 0},
		{in: "12:30 PM", hour: 12, minute: 30},
		{in: "11:59 pm", hour: 23, minute: 59},
		{in: "9:05AM", hour: 9, minute: 5},
		{in: "13:00 PM", wantErr: true},
		{in: "0:15 AM", wantErr: true},
		{in: "7:60 AM", wantErr: true},
		{in: "14:00", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestRevealBoundary(t *testing.T) {
	loc := time.UTC
	b := &models.Booking{ScheduledDate: "2026-03-14", ScheduledTime: "2:00 PM", ClientCode: "C-1234", CreatorCode: "X-5678"}

	before := time.Date(2026, 3, 14, 13, 59, 59, 0, loc)
	at := time.Date(2026, 3, 14, 14, 0, 0, 0, loc)

	assert.False(t, IsRevealed(b, before, loc))
	assert.True(t, IsRevealed(b, at, loc))

	view, err := View(b, before, loc)
	require.NoError(t, err)
	assert.False(t, view.Revealed)
	assert.Empty(t, view.ClientCode)
	assert.Empty(t, view.CreatorCode)
	assert.Equal(t, "0h 0m", view.TimeRemaining)

	view, err = View(b, at, loc)
	require.NoError(t, err)
	assert.True(t, view.Revealed)
	assert.Equal(t, "C-1234", view.ClientCode)
	assert.Equal(t, "X-5678", view.CreatorCode)
}

func TestMidnightBooking(t *testing.T) {
	instant, err := UnlockInstant("2026-03-14", "12:15 AM", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 15, 0, 0, time.UTC), instant)
}

func TestTimeRemaining(t *testing.T) {
	loc := time.UTC
	b := &models.Booking{ScheduledDate: "2026-03-14", ScheduledTime: "2:00 PM"}

	now := time.Date(2026, 3, 12, 11, 30, 0, 0, loc)
	got, err := TimeRemaining(b, now, loc)
	require.NoError(t, err)
	assert.Equal(t, "2d 2h 30m", got)

	now = time.Date(2026, 3, 13, 14, 0, 0, 0, loc)
	got, err = TimeRemaining(b, now, loc)
	require.NoError(t, err)
	assert.Equal(t, "1d 0h 0m", got)

	now = time.Date(2026, 3, 14, 13, 15, 30, 0, loc)
	got, err = TimeRemaining(b, now, loc)
	require.NoError(t, err)
	assert.Equal(t, "0h 44m", got)

	got, err = TimeRemaining(b, time.Date(2026, 3, 15, 0, 0, 0, 0, loc), loc)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = TimeRemaining(&models.Booking{ScheduledDate: "14/03/2026", ScheduledTime: "2:00 PM"}, now, loc)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
}

func TestGenerate(t *testing.T) {
	clientCode, creatorCode, err := GeneratePair()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^C-\d{4}$`), clientCode)
	assert.Regexp(t, regexp.MustCompile(`^X-\d{4}$`), creatorCode)
}
