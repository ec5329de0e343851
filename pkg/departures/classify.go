package departures

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Discriminator decides which bucket a departure belongs to
type Discriminator interface {
	TowardCity(d Departure) bool
}

// DestinationMatch puts departures whose destination mentions City into the Toward bucket.
// Used for HTML payloads, which carry no direction code.
type DestinationMatch struct {
	City string
}

func (m DestinationMatch) TowardCity(d Departure) bool {
	return strings.Contains(strings.ToLower(d.Destination), strings.ToLower(m.City))
}

// DirectionCode puts departures whose upstream direction equals CityCode into the Toward bucket.
// Used for JSON payloads.
type DirectionCode struct {
	CityCode string
}

func (c DirectionCode) TowardCity(d Departure) bool {
	return strings.TrimSpace(d.Direction) == c.CityCode
}

// Normalize turns a raw row into a Departure. It reports false when the row has no usable
// time or destination.
func Normalize(row RawRow, ref time.Time) (Departure, bool) {
	destination := strings.TrimSpace(row.DestinationText)
	if destination == "" {
		return Departure{}, false
	}

	minutes, ok := NormalizeTime(row.TimeText, ref)
	if !ok {
		return Departure{}, false
	}

	stops := strings.TrimSpace(row.StopsText)
	if stops == "" {
		stops = DefaultStops
	}

	return Departure{
		Platform:    PlatformNumber(row.PlatformText),
		Destination: destination,
		TimeDisplay: DisplayTime(row.TimeText),
		Minutes:     minutes,
		Pattern:     DefaultPattern,
		Stops:       stops,
		Route:       strings.TrimSpace(row.Route),
		Direction:   strings.TrimSpace(row.Direction),
		Fleet:       row.Fleet,
	}, true
}

// Classify normalizes rows against ref, splits them with disc and returns both buckets
// sorted by minutes and clipped to MaxPerBucket.
func Classify(rows []RawRow, ref time.Time, disc Discriminator) Board {
	board := Board{
		Toward: []Departure{},
		Away:   []Departure{},
	}

	for i, row := range rows {
		d, ok := Normalize(row, ref)
		if !ok {
			log.Debug().
				Int("row", i).
				Str("time", row.TimeText).
				Str("destination", row.DestinationText).
				Msg("dropping departure that could not be normalized")
			continue
		}

		if disc.TowardCity(d) {
			board.Toward = append(board.Toward, d)
		} else {
			board.Away = append(board.Away, d)
		}
	}

	board.Toward = sortAndClip(board.Toward, MaxPerBucket)
	board.Away = sortAndClip(board.Away, MaxPerBucket)

	return board
}

// sortAndClip orders departures by minutes, keeping upstream order for ties
func sortAndClip(deps []Departure, max int) []Departure {
	sort.SliceStable(deps, func(i, j int) bool {
		return deps[i].Minutes < deps[j].Minutes
	})

	if len(deps) > max {
		deps = deps[:max]
	}
	return deps
}

// Summary is a one-line description used by the CLI and logs, e.g. "Perth in 4 min (platform 2)"
func (d Departure) Summary() string {
	when := "now"
	if d.Minutes > 0 {
		when = "in " + strconv.Itoa(d.Minutes) + " min"
	}
	return d.Destination + " " + when + " (platform " + d.Platform + ")"
}
