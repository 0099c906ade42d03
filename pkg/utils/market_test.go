package utils

import (
	"testing"
	"time"
)

func easternWindow(t *testing.T) *MarketWindow {
	t.Helper()
	w, err := NewMarketWindow("US/Eastern", "09:30", "16:00")
	if err != nil {
		t.Fatalf("NewMarketWindow: %v", err)
	}
	return w
}

func TestMarketWindowDefaults(t *testing.T) {
	w, err := NewMarketWindow("", "", "")
	if err != nil {
		t.Fatalf("NewMarketWindow with defaults: %v", err)
	}
	if w.OpenString() != "09:30" || w.CloseString() != "16:00" {
		t.Errorf("defaults = %s-%s, want 09:30-16:00", w.OpenString(), w.CloseString())
	}
}

func TestMarketWindowRejectsInvertedWindow(t *testing.T) {
	if _, err := NewMarketWindow("US/Eastern", "16:00", "09:30"); err == nil {
		t.Error("open after close must be rejected")
	}
	if _, err := NewMarketWindow("Not/AZone", "09:30", "16:00"); err == nil {
		t.Error("unknown timezone must be rejected")
	}
	if _, err := NewMarketWindow("US/Eastern", "9am", "16:00"); err == nil {
		t.Error("malformed clock must be rejected")
	}
}

func TestIsOpenAt(t *testing.T) {
	w := easternWindow(t)
	loc := w.Location

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"mid-session Tuesday", time.Date(2024, 3, 5, 12, 0, 0, 0, loc), true},
		{"exactly at open", time.Date(2024, 3, 5, 9, 30, 0, 0, loc), true},
		{"minute before open", time.Date(2024, 3, 5, 9, 29, 0, 0, loc), false},
		{"exactly at close", time.Date(2024, 3, 5, 16, 0, 0, 0, loc), false},
		{"Saturday noon", time.Date(2024, 3, 9, 12, 0, 0, 0, loc), false},
		{"Sunday noon", time.Date(2024, 3, 10, 12, 0, 0, 0, loc), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.IsOpenAt(tt.t); got != tt.want {
				t.Errorf("IsOpenAt(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestIsOpenAtConvertsTimezone(t *testing.T) {
	w := easternWindow(t)
	// 17:00 UTC on a Tuesday is 12:00 or 13:00 Eastern, inside the window
	// either way.
	utc := time.Date(2024, 3, 5, 17, 0, 0, 0, time.UTC)
	if !w.IsOpenAt(utc) {
		t.Error("UTC timestamps must be converted into the window's timezone")
	}
}

func TestNextOpenSkipsWeekend(t *testing.T) {
	w := easternWindow(t)
	loc := w.Location

	// Friday after close.
	friday := time.Date(2024, 3, 8, 17, 0, 0, 0, loc)
	next := w.NextOpen(friday)
	if next.Weekday() != time.Monday {
		t.Errorf("NextOpen(Friday evening).Weekday() = %v, want Monday", next.Weekday())
	}
	if next.Hour() != 9 || next.Minute() != 30 {
		t.Errorf("NextOpen = %v, want 09:30", next)
	}

	// Before open on a weekday stays on the same day.
	tuesday := time.Date(2024, 3, 5, 8, 0, 0, 0, loc)
	next = w.NextOpen(tuesday)
	if next.Day() != 5 {
		t.Errorf("NextOpen(Tuesday 08:00) = %v, want same day", next)
	}
}

func TestTimeUntilClose(t *testing.T) {
	w := easternWindow(t)
	loc := w.Location

	noon := time.Date(2024, 3, 5, 12, 0, 0, 0, loc)
	if got := w.TimeUntilClose(noon); got != 4*time.Hour {
		t.Errorf("TimeUntilClose(noon) = %v, want 4h", got)
	}

	evening := time.Date(2024, 3, 5, 18, 0, 0, 0, loc)
	if got := w.TimeUntilClose(evening); got >= 0 {
		t.Errorf("TimeUntilClose after close = %v, want negative", got)
	}
}
