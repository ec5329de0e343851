package extract

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spkg/bom"

	"trainboard/pkg/departures"
)

// tripsResponse is the body returned by the stop timetable endpoint.
// Trips stay raw so one malformed trip cannot fail the whole decode.
type tripsResponse struct {
	Result string            `json:"result"`
	Trips  []json.RawMessage `json:"trips"`
}

type trip struct {
	StopTimetableStop struct {
		Name string `json:"Name"`
	} `json:"StopTimetableStop"`
	DepartTime string      `json:"DepartTime"`
	Summary    tripSummary `json:"Summary"`
}

type tripSummary struct {
	Direction              flexString    `json:"Direction"`
	RouteName              string        `json:"RouteName"`
	Headsign               string        `json:"Headsign"`
	DisplayTripTitle       string        `json:"DisplayTripTitle"`
	DisplayTripDescription string        `json:"DisplayTripDescription"`
	RealTimeInfo           *realTimeInfo `json:"RealTimeInfo"`
}

type realTimeInfo struct {
	Series      string     `json:"Series"`
	NumCar      flexString `json:"NumCar"`
	FleetNumber flexString `json:"FleetNumber"`
}

// flexString accepts a JSON string or number; the endpoint is not consistent about which it sends
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Trips reads departures from the structured timetable endpoint
type Trips struct{}

func (Trips) Shape() Shape {
	return ShapeJSON
}

// Extract decodes the trips list. A non-success result or an unreadable body fails with ErrDecode.
func (Trips) Extract(body []byte) ([]departures.RawRow, error) {
	var resp tripsResponse
	if err := json.Unmarshal(bom.Clean(body), &resp); err != nil {
		return nil, errors.Wrapf(ErrDecode, "decoding trips json: %v", err)
	}

	if !strings.EqualFold(resp.Result, "success") {
		return nil, errors.Wrapf(ErrDecode, "upstream result %q", resp.Result)
	}

	var rows []departures.RawRow
	for i, raw := range resp.Trips {
		var t trip
		if err := json.Unmarshal(raw, &t); err != nil {
			log.Debug().Err(err).Int("trip", i).Msg("skipping undecodable trip")
			continue
		}

		row, ok := t.row()
		if !ok {
			log.Debug().Int("trip", i).Msg("skipping trip without departure time or destination")
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (t trip) row() (departures.RawRow, bool) {
	destination := strings.TrimSpace(t.Summary.DisplayTripTitle)
	if destination == "" {
		destination = strings.TrimSpace(t.Summary.Headsign)
	}
	if destination == "" || strings.TrimSpace(t.DepartTime) == "" {
		return departures.RawRow{}, false
	}

	return departures.RawRow{
		TimeText:        t.DepartTime,
		DestinationText: destination,
		PlatformText:    t.StopTimetableStop.Name,
		StopsText:       t.Summary.DisplayTripDescription,
		Route:           t.Summary.RouteName,
		Direction:       string(t.Summary.Direction),
		Fleet:           t.Summary.RealTimeInfo.fleet(),
	}, true
}

func (r *realTimeInfo) fleet() *departures.Fleet {
	if r == nil {
		return nil
	}

	f := departures.Fleet{
		Series: strings.TrimSpace(r.Series),
		Number: strings.TrimSpace(string(r.FleetNumber)),
	}
	if cars, err := strconv.Atoi(strings.TrimSpace(string(r.NumCar))); err == nil {
		f.Cars = cars
	}

	if f == (departures.Fleet{}) {
		return nil
	}
	return &f
}
