package exporter

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"trainboard/pkg/departures"
)

type csvRow struct {
	Direction   string `csv:"direction"`
	Destination string `csv:"destination"`
	Platform    string `csv:"platform"`
	Minutes     int    `csv:"minutes"`
	DepartsAt   string `csv:"departs_at"`
	TimeDisplay string `csv:"time_display"`
	Stops       string `csv:"stops"`
	Pattern     string `csv:"pattern"`
	Route       string `csv:"route"`
}

// GenerateCSV writes the board as CSV with a header row, toward-city departures first
func GenerateCSV(board departures.Board, ref time.Time, w io.Writer) error {
	var rows []*csvRow
	for _, d := range boardRows(board) {
		rows = append(rows, &csvRow{
			Direction:   d.bucket,
			Destination: d.Destination,
			Platform:    d.Platform,
			Minutes:     d.Minutes,
			DepartsAt:   ref.Add(time.Duration(d.Minutes) * time.Minute).Format("15:04"),
			TimeDisplay: d.TimeDisplay,
			Stops:       d.Stops,
			Pattern:     d.Pattern,
			Route:       d.Route,
		})
	}

	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
