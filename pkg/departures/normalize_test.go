package departures

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var reference = time.Date(2026, 3, 4, 8, 0, 0, 0, OperatorZone)

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		raw     string
		minutes int
		ok      bool
	}{
		{"Now", 0, true},
		{"DUE", 0, true},
		{"Due in", 0, true},
		{"5 min", 5, true},
		{"12 MIN", 12, true},
		{"3mins", 3, true},
		{"  7 min  ", 7, true},
		{"15", 15, true},
		{"08:15", 15, true},
		{"8:15 am", 15, true},
		{"8:00", 0, true},
		{"07:59", 1439, true},
		{"12:00 pm", 240, true},
		{"1:05 pm", 305, true},
		{"12:30 am", 990, true},
		{"08:15\nScheduled", 15, true},
		{"2026-03-04T08:07:00", 7, true},
		{"2026-03-04T00:07:00Z", 7, true},
		{"2026-03-04T08:07:00+08:00", 7, true},
		{"2026-03-04T09:30", 90, true},
		{"2026-03-04T07:00:00", 0, true},
		{"", 0, false},
		{"Cancelled", 0, false},
		{"soon", 0, false},
		{"25:00", 0, false},
		{"8:75", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			minutes, ok := NormalizeTime(tt.raw, reference)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.minutes, minutes)
		})
	}
}

func TestNormalizeTime_CountdownAlwaysExact(t *testing.T) {
	for n := 0; n < 240; n++ {
		for _, format := range []string{"%d min", "%dmin", "%d   MIN", "%d Mins"} {
			raw := fmt.Sprintf(format, n)
			minutes, ok := NormalizeTime(raw, reference)
			if assert.True(t, ok, raw) {
				assert.Equal(t, n, minutes, raw)
			}
		}
	}
}

func TestNormalizeTime_ClockWithinOneDay(t *testing.T) {
	refs := []time.Time{
		reference,
		reference.Add(30 * time.Second),
		time.Date(2026, 12, 31, 23, 59, 59, 0, OperatorZone),
		time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	for _, ref := range refs {
		for hour := 0; hour < 24; hour++ {
			for minute := 0; minute < 60; minute += 7 {
				raw := fmt.Sprintf("%d:%02d", hour, minute)
				minutes, ok := NormalizeTime(raw, ref)
				assert.True(t, ok, raw)
				assert.GreaterOrEqual(t, minutes, 0, raw)
				assert.Less(t, minutes, 1440, raw)
			}
		}
	}
}

func TestNormalizeTime_TimestampSevenMinutesAhead(t *testing.T) {
	ref := time.Now().In(OperatorZone)
	raw := ref.Add(7 * time.Minute).Format("2006-01-02T15:04:05")

	minutes, ok := NormalizeTime(raw, ref)
	assert.True(t, ok)
	assert.InDelta(t, 7, minutes, 1)
}

func TestNormalizeTime_Deterministic(t *testing.T) {
	first, _ := NormalizeTime("11:42 pm", reference)
	second, _ := NormalizeTime("11:42 pm", reference)
	assert.Equal(t, first, second)
}

func TestDisplayTime(t *testing.T) {
	assert.Equal(t, "08:07", DisplayTime("2026-03-04T08:07:00"))
	assert.Equal(t, "08:07", DisplayTime("2026-03-04T00:07:00Z"))
	assert.Equal(t, "5 min", DisplayTime(" 5 min "))
}

func TestPlatformNumber(t *testing.T) {
	assert.Equal(t, "2", PlatformNumber("Queens Park Stn Platform 2"))
	assert.Equal(t, "1", PlatformNumber("PLATFORM   1\nAll Stations"))
	assert.Equal(t, DefaultPlatform, PlatformNumber("Bay C"))
}
