package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FleetSettings carries the operational constants of a collection
// deployment. They feel process-wide but are deliberately loaded once and
// passed into the gap/loss engines as a value, so tests can vary them.
//
// Env:
// - FLEET_START_DATE   (YYYY-MM-DD, default 2024-01-01) — tracking never looks back further
// - FLEET_DAILY_TARGET (default 300) — per-vehicle daily collection target
// - FLEET_CUTOFF_HOUR  (0-23, default 16) — before this local hour "today" is not yet expected
// - FLEET_TIMEZONE     (IANA name, default Asia/Yangon)
type FleetSettings struct {
	StartDate   time.Time
	DailyTarget decimal.Decimal
	CutoffHour  int
	Timezone    string
}

func LoadFleetSettings() (FleetSettings, error) {
	s := FleetSettings{
		DailyTarget: decimal.NewFromInt(300),
		CutoffHour:  16,
		Timezone:    "Asia/Yangon",
	}

	if v := strings.TrimSpace(os.Getenv("FLEET_TIMEZONE")); v != "" {
		s.Timezone = v
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return s, fmt.Errorf("invalid FLEET_TIMEZONE %q: %w", s.Timezone, err)
	}

	start := "2024-01-01"
	if v := strings.TrimSpace(os.Getenv("FLEET_START_DATE")); v != "" {
		start = v
	}
	s.StartDate, err = time.ParseInLocation("2006-01-02", start, loc)
	if err != nil {
		return s, fmt.Errorf("invalid FLEET_START_DATE %q: %w", start, err)
	}

	if v := strings.TrimSpace(os.Getenv("FLEET_DAILY_TARGET")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return s, fmt.Errorf("invalid FLEET_DAILY_TARGET %q: %w", v, err)
		}
		s.DailyTarget = d
	}

	if v := strings.TrimSpace(os.Getenv("FLEET_CUTOFF_HOUR")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 23 {
			return s, fmt.Errorf("invalid FLEET_CUTOFF_HOUR %q", v)
		}
		s.CutoffHour = n
	}

	return s, nil
}

// Location resolves the configured operating timezone.
func (s FleetSettings) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}
