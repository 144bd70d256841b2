package triage

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseableDate is returned by ParseAge when no supported format
// matches or the parsed date lies in the future.
var ErrUnparseableDate = errors.New("unparseable document date")

// dateLayouts are tried in priority order. Brazilian day/month/year first
// because it is what the upstream document metadata usually carries.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// longFormRe matches the Portuguese long form, e.g. "15 de março de 2024".
var longFormRe = regexp.MustCompile(`^(\d{1,2}) de ([\p{L}ç]+) de (\d{4})$`)

var ptMonths = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"março":     time.March,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// ParseAge parses a raw document date and returns its age in whole days
// relative to now. Deterministic given now; never does I/O. Dates in the
// future are rejected: a future issue date is never a valid age.
func ParseAge(raw string, now time.Time) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnparseableDate)
	}

	var parsed time.Time
	var ok bool

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			parsed, ok = t, true
			break
		}
	}
	if !ok {
		parsed, ok = parseLongForm(raw)
	}
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
	}

	age := int(now.Sub(parsed).Hours() / 24)
	if age < 0 {
		return 0, fmt.Errorf("%w: %q is in the future", ErrUnparseableDate, raw)
	}
	return age, nil
}

func parseLongForm(raw string) (time.Time, bool) {
	m := longFormRe.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	month, ok := ptMonths[m[2]]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// Reject rollover like "31 de fevereiro".
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}
