package exporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"trainboard/pkg/departures"
)

// dwell is how long a departure event lasts in the calendar
const dwell = time.Minute

// GenerateICS writes one event per departure on the board. Start times are ref plus the
// countdown, so ref should be the time the board was fetched.
func GenerateICS(board departures.Board, ref time.Time, station string, w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//trainboard//departures//EN")
	cal.SetName(station + " departures")

	for i, d := range boardRows(board) {
		start := ref.Add(time.Duration(d.Minutes) * time.Minute).Truncate(time.Minute)

		event := cal.AddEvent(fmt.Sprintf("%s-%d@trainboard", start.UTC().Format("20060102T150405Z"), i))
		event.SetCreatedTime(ref)
		event.SetDtStampTime(ref)
		event.SetModifiedAt(ref)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(dwell))
		event.SetSummary(fmt.Sprintf("Train to %s", d.Destination))
		event.SetLocation(fmt.Sprintf("%s platform %s", station, d.Platform))

		desc := []string{"Stops: " + d.Stops, "Direction: " + d.bucket}
		if d.Route != "" {
			desc = append(desc, "Route: "+d.Route)
		}
		event.SetDescription(strings.Join(desc, "\n"))
	}

	return cal.SerializeTo(w)
}

type boardRow struct {
	departures.Departure
	bucket string
}

// boardRows flattens the board, toward-city departures first
func boardRows(board departures.Board) []boardRow {
	rows := make([]boardRow, 0, board.Len())
	for _, d := range board.Toward {
		rows = append(rows, boardRow{d, BucketToward})
	}
	for _, d := range board.Away {
		rows = append(rows, boardRow{d, BucketAway})
	}
	return rows
}

// Bucket labels used in exports
const (
	BucketToward = "toward"
	BucketAway   = "away"
)
