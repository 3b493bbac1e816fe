// Package codes gates the meetup verification codes behind the scheduled meetup instant.
//
// Dates and 12-hour clock strings are interpreted in a single wall-clock location
// supplied by the caller; client and creator are assumed to share it.
package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"trustmeet/internal/models"
)

const (
	ClientPrefix  = "C"
	CreatorPrefix = "X"
)

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)

// ParseClock converts "h:mm AM|PM" to a 24-hour hour and minute.
// 12 AM maps to hour 0, PM adds 12 except for 12 PM.
func ParseClock(clock string) (hour, minute int, err error) {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(clock))
	if m == nil {
		return 0, 0, fmt.Errorf("clock %q: %w", clock, models.ErrInvalidRequest)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return 0, 0, fmt.Errorf("clock %q out of range: %w", clock, models.ErrInvalidRequest)
	}

	pm := strings.EqualFold(m[3], "PM")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case pm && hour != 12:
		hour += 12
	}
	return hour, minute, nil
}

// UnlockInstant combines a YYYY-MM-DD date and a 12-hour clock string into an absolute instant.
func UnlockInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", date, models.ErrInvalidRequest)
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// IsRevealed reports whether now has reached the booking's unlock instant.
// Unparseable schedules never reveal.
func IsRevealed(b *models.Booking, now time.Time, loc *time.Location) bool {
	instant, err := UnlockInstant(b.ScheduledDate, b.ScheduledTime, loc)
	if err != nil {
		return false
	}
	return !now.Before(instant)
}

// TimeRemaining renders the wait until reveal as "Nd Nh Nm".
// Days are omitted when zero. An empty string means the codes are revealed.
func TimeRemaining(b *models.Booking, now time.Time, loc *time.Location) (string, error) {
	instant, err := UnlockInstant(b.ScheduledDate, b.ScheduledTime, loc)
	if err != nil {
		return "", err
	}
	if !now.Before(instant) {
		return "", nil
	}
	return FormatRemaining(instant.Sub(now)), nil
}

// FormatRemaining floor-divides d into days, hours and minutes.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int64(d / (24 * time.Hour))
	hours := int64(d%(24*time.Hour)) / int64(time.Hour)
	minutes := int64(d%time.Hour) / int64(time.Minute)
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// CodeView is what a party is allowed to see about the verification codes.
type CodeView struct {
	Revealed      bool      `json:"revealed"`
	UnlocksAt     time.Time `json:"unlocks_at"`
	TimeRemaining string    `json:"time_remaining,omitempty"`
	ClientCode    string    `json:"client_code,omitempty"`
	CreatorCode   string    `json:"creator_code,omitempty"`
}

// View returns the codes only once the unlock instant has been reached.
func View(b *models.Booking, now time.Time, loc *time.Location) (CodeView, error) {
	instant, err := UnlockInstant(b.ScheduledDate, b.ScheduledTime, loc)
	if err != nil {
		return CodeView{}, err
	}
	view := CodeView{UnlocksAt: instant}
	if now.Before(instant) {
		view.TimeRemaining = FormatRemaining(instant.Sub(now))
		return view, nil
	}
	view.Revealed = true
	view.ClientCode = b.ClientCode
	view.CreatorCode = b.CreatorCode
	return view, nil
}

// Generate returns a code in the form PREFIX-dddd.
func Generate(prefix string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%s-%04d", prefix, n.Int64()), nil
}

// GeneratePair returns the client and creator codes for a new booking.
func GeneratePair() (clientCode, creatorCode string, err error) {
	if clientCode, err = Generate(ClientPrefix); err != nil {
		return "", "", err
	}
	if creatorCode, err = Generate(CreatorPrefix); err != nil {
		return "", "", err
	}
	return clientCode, creatorCode, nil
}
