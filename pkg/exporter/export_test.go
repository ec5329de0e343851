package exporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainboard/pkg/departures"
)

var ref = time.Date(2026, 3, 4, 8, 0, 30, 0, departures.OperatorZone)

func testBoard() departures.Board {
	return departures.Board{
		Toward: []departures.Departure{
			{Platform: "1", Destination: "Perth", TimeDisplay: "4 min", Minutes: 4, Pattern: "W", Stops: "All Stations", Route: "Armadale Line"},
		},
		Away: []departures.Departure{
			{Platform: "2", Destination: "Armadale", TimeDisplay: "08:12", Minutes: 12, Pattern: "W", Stops: "K Pattern"},
		},
	}
}

func TestGenerateICS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateICS(testBoard(), ref, "Queens Park Stn", &buf))

	output := buf.String()
	assert.Equal(t, 2, strings.Count(output, "BEGIN:VEVENT"))
	assert.Contains(t, output, "SUMMARY:Train to Perth")
	assert.Contains(t, output, "SUMMARY:Train to Armadale")
	assert.Contains(t, output, "LOCATION:Queens Park Stn platform 1")

	// 08:04 AWST is 00:04 UTC
	assert.Contains(t, output, "DTSTART:20260304T000400Z")
	assert.Contains(t, output, "DTEND:20260304T000500Z")
	assert.Contains(t, output, "DTSTART:20260304T001200Z")
}

func TestGenerateICS_EmptyBoard(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateICS(departures.Board{}, ref, "Queens Park Stn", &buf))
	assert.Contains(t, buf.String(), "BEGIN:VCALENDAR")
	assert.NotContains(t, buf.String(), "BEGIN:VEVENT")
}

func TestGenerateCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, GenerateCSV(testBoard(), ref, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"direction", "destination", "platform", "minutes", "departs_at", "time_display", "stops", "pattern", "route"}, records[0])
	assert.Equal(t, []string{"toward", "Perth", "1", "4", "08:04", "4 min", "All Stations", "W", "Armadale Line"}, records[1])
	assert.Equal(t, []string{"away", "Armadale", "2", "12", "08:12", "08:12", "K Pattern", "W", ""}, records[2])
}
