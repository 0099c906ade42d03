package utils

import (
	"fmt"
	"time"
)

// MarketWindow describes a daily trading window in a specific timezone.
// The zero value is unusable; build one with NewMarketWindow.
type MarketWindow struct {
	Location  *time.Location
	OpenHour  int
	OpenMin   int
	CloseHour int
	CloseMin  int
}

// NewMarketWindow builds a market window from a timezone name and
// HH:MM open/close strings. Defaults to US/Eastern 09:30-16:00 when the
// arguments are empty.
func NewMarketWindow(timezone, open, close string) (*MarketWindow, error) {
	if timezone == "" {
		timezone = "US/Eastern"
	}
	if open == "" {
		open = "09:30"
	}
	if close == "" {
		close = "16:00"
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}

	openT, err := time.Parse("15:04", open)
	if err != nil {
		return nil, fmt.Errorf("parsing open time %q: %w", open, err)
	}
	closeT, err := time.Parse("15:04", close)
	if err != nil {
		return nil, fmt.Errorf("parsing close time %q: %w", close, err)
	}

	w := &MarketWindow{
		Location:  loc,
		OpenHour:  openT.Hour(),
		OpenMin:   openT.Minute(),
		CloseHour: closeT.Hour(),
		CloseMin:  closeT.Minute(),
	}
	if w.openMinutes() >= w.closeMinutes() {
		return nil, fmt.Errorf("market window open %s must precede close %s", open, close)
	}
	return w, nil
}

func (w *MarketWindow) openMinutes() int  { return w.OpenHour*60 + w.OpenMin }
func (w *MarketWindow) closeMinutes() int { return w.CloseHour*60 + w.CloseMin }

// IsOpenAt reports whether t falls inside the window on a weekday.
func (w *MarketWindow) IsOpenAt(t time.Time) bool {
	local := t.In(w.Location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= w.openMinutes() && minutes < w.closeMinutes()
}

// IsOpen reports whether the window is open right now.
func (w *MarketWindow) IsOpen() bool {
	return w.IsOpenAt(time.Now())
}

// NextOpen returns the next weekday opening time at or after t.
func (w *MarketWindow) NextOpen(t time.Time) time.Time {
	local := t.In(w.Location)
	next := time.Date(local.Year(), local.Month(), local.Day(),
		w.OpenHour, w.OpenMin, 0, 0, w.Location)

	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// CloseAt returns the closing time on t's day.
func (w *MarketWindow) CloseAt(t time.Time) time.Time {
	local := t.In(w.Location)
	return time.Date(local.Year(), local.Month(), local.Day(),
		w.CloseHour, w.CloseMin, 0, 0, w.Location)
}

// TimeUntilClose returns the duration from t to the day's close.
func (w *MarketWindow) TimeUntilClose(t time.Time) time.Duration {
	return w.CloseAt(t).Sub(t)
}

// OpenString returns the opening time as HH:MM.
func (w *MarketWindow) OpenString() string {
	return fmt.Sprintf("%02d:%02d", w.OpenHour, w.OpenMin)
}

// CloseString returns the closing time as HH:MM.
func (w *MarketWindow) CloseString() string {
	return fmt.Sprintf("%02d:%02d", w.CloseHour, w.CloseMin)
}
