package departures

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	minutesPattern  = regexp.MustCompile(`(\d+)\s*min`)
	barePattern     = regexp.MustCompile(`^\d+$`)
	clockPattern    = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)?`)
	datePattern     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	platformPattern = regexp.MustCompile(`(?i)platform\s+(\d+)`)
)

// Layouts accepted for structured departure timestamps. Offset-less values are operator local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// NormalizeTime converts a countdown string, clock time or timestamp into whole minutes after ref.
// The boolean is false when raw matches none of the known formats.
func NormalizeTime(raw string, ref time.Time) (int, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return 0, false
	}

	if strings.Contains(text, "now") || strings.Contains(text, "due") {
		return 0, true
	}

	if m := minutesPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}

	if barePattern.MatchString(text) {
		if n, err := strconv.Atoi(text); err == nil {
			return n, true
		}
	}

	// "2026-03-04T08:15:00" also contains a clock time; leave dated strings to the timestamp rule
	if !datePattern.MatchString(text) {
		if m := clockPattern.FindStringSubmatch(text); m != nil {
			return clockMinutes(m, ref)
		}
	}

	if t, ok := parseTimestamp(raw); ok {
		return floorMinutes(t.Sub(ref)), true
	}

	return 0, false
}

// clockMinutes resolves a wall-clock match to its next occurrence at or after ref
func clockMinutes(m []string, ref time.Time) (int, bool) {
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	minute, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return 0, false
	}

	local := ref.In(OperatorZone)
	departure := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, OperatorZone)
	if departure.Before(local) {
		departure = departure.AddDate(0, 0, 1)
	}

	return floorMinutes(departure.Sub(local)), true
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, OperatorZone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func floorMinutes(d time.Duration) int {
	m := int(math.Floor(d.Minutes()))
	if m < 0 {
		return 0
	}
	return m
}

// DisplayTime renders the upstream time for humans: timestamps become "15:04" in operator time,
// anything else is passed through trimmed.
func DisplayTime(raw string) string {
	if t, ok := parseTimestamp(raw); ok {
		return t.In(OperatorZone).Format("15:04")
	}
	return strings.TrimSpace(raw)
}

// PlatformNumber extracts N from text such as "Platform 2" or "Queens Park Stn Platform 2"
func PlatformNumber(text string) string {
	if m := platformPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return DefaultPlatform
}
