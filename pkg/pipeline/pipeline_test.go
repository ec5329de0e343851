package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainboard/pkg/config"
	"trainboard/pkg/departures"
	"trainboard/pkg/extract"
	"trainboard/pkg/fetch"
	"trainboard/pkg/session"
)

// manualClock serves both the session cache and the pipeline
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 4, 8, 0, 0, 0, departures.OperatorZone)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const stationPage = `<html><body>
<input type="hidden" name="__RequestVerificationToken" value="tok-%d">
<div data-moduleid="5111" data-tabid="248"></div>
<table id="tblStationStatus"><tbody>%s</tbody></table>
</body></html>`

func row(when, dest, platform string) string {
	return fmt.Sprintf("<tr><td>%s</td><td>%s</td><td>%s</td></tr>", when, dest, platform)
}

const tripsBody = `{"result":"success","trips":[
 {"StopTimetableStop":{"Name":"Queens Park Stn Platform 1"},"DepartTime":"2026-03-04T08:06:00",
  "Summary":{"Direction":1,"RouteName":"Armadale Line","DisplayTripTitle":"Perth","RealTimeInfo":{"Series":"B","NumCar":6,"FleetNumber":"2031"}}},
 {"StopTimetableStop":{"Name":"Queens Park Stn Platform 2"},"DepartTime":"2026-03-04T08:03:00",
  "Summary":{"Direction":0,"RouteName":"Armadale Line","Headsign":"Armadale"}},
 {"StopTimetableStop":{"Name":"Queens Park Stn Platform 1"},"DepartTime":"2026-03-04T08:01:00",
  "Summary":{"Direction":1,"RouteName":"Thornlie Line","DisplayTripTitle":"Perth"}}
]}`

// upstream imitates the station page and the timetable endpoint
type upstream struct {
	*httptest.Server

	landings atomic.Int32
	apiCalls atomic.Int32
	deny     atomic.Int32 // number of upcoming api calls to answer with 403

	mu       sync.Mutex
	lastForm map[string]string
	lastHdr  http.Header
	lines    []string
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		line := r.URL.Query().Get("line")
		u.mu.Lock()
		u.lines = append(u.lines, line)
		u.mu.Unlock()

		var rows string
		switch line {
		case "Thornlie Line":
			rows = row("4 min", "Thornlie", "Platform 2")
		case "":
			n := u.landings.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "dnn_session", Value: fmt.Sprint(n)})
			rows = row("Now", "Perth", "Platform 1")
		default:
			rows = row("7 min", "Perth", "Platform 1") + row("2 min", "Armadale", "Platform 2") + row("later", "Perth", "")
		}
		fmt.Fprintf(w, stationPage, u.landings.Load(), rows)
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		u.apiCalls.Add(1)
		assert.NoError(t, r.ParseForm())

		u.mu.Lock()
		u.lastForm = map[string]string{}
		for k := range r.PostForm {
			u.lastForm[k] = r.PostForm.Get(k)
		}
		u.lastHdr = r.Header.Clone()
		u.mu.Unlock()

		if u.deny.Load() > 0 {
			u.deny.Add(-1)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tripsBody)
	})
	u.Server = httptest.NewServer(mux)
	t.Cleanup(u.Close)
	return u
}

func testFetcher() fetch.Strategy {
	return fetch.NewDirect(fetch.Options{Timeout: 2 * time.Second, Attempts: 2})
}

func newJSONPipeline(t *testing.T, up *upstream, clock *manualClock) *Pipeline {
	t.Helper()
	fetcher := testFetcher()
	tokens := session.NewManager(fetcher, session.Options{
		LandingURL: up.URL + "/live",
		TTL:        5 * time.Minute,
		Clock:      clock,
	})
	return New(fetcher, extract.Trips{}, tokens, departures.DirectionCode{CityCode: "1"}, clock, Options{
		LiveTimesURL:    up.URL + "/live",
		TimetableAPIURL: up.URL + "/api",
		StationID:       "1234",
	})
}

func TestRun_HTMLLinesFetchedSequentially(t *testing.T) {
	up := newUpstream(t)
	clock := newClock()
	p := New(testFetcher(), extract.HTML{}, nil, departures.DestinationMatch{City: "Perth"}, clock, Options{
		LiveTimesURL: up.URL + "/live",
		StationName:  "Queens Park Stn",
		Lines:        []string{"Armadale Line", "Thornlie Line"},
	})

	res := p.Run(context.Background(), "")
	require.True(t, res.Success, res.Error)
	assert.Empty(t, res.Error)
	assert.Equal(t, clock.Now(), res.LastUpdated)
	assert.Equal(t, []string{"Armadale Line", "Thornlie Line"}, up.lines)

	require.Len(t, res.Board.Toward, 1)
	assert.Equal(t, "Perth", res.Board.Toward[0].Destination)
	assert.Equal(t, 7, res.Board.Toward[0].Minutes)
	assert.Equal(t, "1", res.Board.Toward[0].Platform)

	require.Len(t, res.Board.Away, 2)
	assert.Equal(t, "Armadale", res.Board.Away[0].Destination)
	assert.Equal(t, "Thornlie", res.Board.Away[1].Destination)
	assert.Zero(t, up.apiCalls.Load())
}

func TestRun_JSONUsesSessionToken(t *testing.T) {
	up := newUpstream(t)
	p := newJSONPipeline(t, up, newClock())

	res := p.Run(context.Background(), "")
	require.True(t, res.Success, res.Error)

	require.Len(t, res.Board.Toward, 2)
	assert.Equal(t, 1, res.Board.Toward[0].Minutes)
	assert.Equal(t, "Thornlie Line", res.Board.Toward[0].Route)
	assert.Equal(t, 6, res.Board.Toward[1].Minutes)
	assert.Equal(t, &departures.Fleet{Series: "B", Cars: 6, Number: "2031"}, res.Board.Toward[1].Fleet)
	require.Len(t, res.Board.Away, 1)
	assert.Equal(t, "Armadale", res.Board.Away[0].Destination)
	assert.Equal(t, "08:03", res.Board.Away[0].TimeDisplay)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, map[string]string{
		"StationId":         "1234",
		"SearchDate":        "2026-03-04",
		"SearchTime":        "08:00",
		"IsRealTimeChecked": "true",
	}, up.lastForm)
	assert.Equal(t, "tok-1", up.lastHdr.Get("RequestVerificationToken"))
	assert.Equal(t, "5111", up.lastHdr.Get("ModuleId"))
	assert.Equal(t, "248", up.lastHdr.Get("TabId"))
	assert.Equal(t, "XMLHttpRequest", up.lastHdr.Get("X-Requested-With"))
	assert.Contains(t, up.lastHdr.Get("Cookie"), "dnn_session=1")
}

func TestRun_StationOverride(t *testing.T) {
	up := newUpstream(t)
	p := newJSONPipeline(t, up, newClock())

	res := p.Run(context.Background(), "9876")
	require.True(t, res.Success, res.Error)

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, "9876", up.lastForm["StationId"])
}

func TestRun_TokenReusedWithinTTL(t *testing.T) {
	up := newUpstream(t)
	clock := newClock()
	p := newJSONPipeline(t, up, clock)

	for i := 0; i < 3; i++ {
		require.True(t, p.Run(context.Background(), "").Success)
		clock.Advance(time.Minute)
	}
	assert.EqualValues(t, 1, up.landings.Load())
	assert.EqualValues(t, 3, up.apiCalls.Load())

	clock.Advance(3 * time.Minute)
	require.True(t, p.Run(context.Background(), "").Success)
	assert.EqualValues(t, 2, up.landings.Load())
}

func TestRun_AccessDeniedInvalidatesToken(t *testing.T) {
	up := newUpstream(t)
	p := newJSONPipeline(t, up, newClock())
	up.deny.Store(1)

	res := p.Run(context.Background(), "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "access denied")
	assert.NotNil(t, res.Board.Toward)
	assert.NotNil(t, res.Board.Away)
	assert.Empty(t, res.Board.Toward)
	assert.Empty(t, res.Board.Away)
	// 403 is never retried
	assert.EqualValues(t, 1, up.apiCalls.Load())

	res = p.Run(context.Background(), "")
	require.True(t, res.Success, res.Error)
	assert.EqualValues(t, 2, up.landings.Load())

	up.mu.Lock()
	defer up.mu.Unlock()
	assert.Equal(t, "tok-2", up.lastHdr.Get("RequestVerificationToken"))
}

func TestRun_NoTokenMeansNoDataRequest(t *testing.T) {
	up := newUpstream(t)
	fetcher := testFetcher()
	tokens := session.NewManager(fetcher, session.Options{LandingURL: up.URL + "/missing"})
	p := New(fetcher, extract.Trips{}, tokens, departures.DirectionCode{CityCode: "1"}, newClock(), Options{
		TimetableAPIURL: up.URL + "/api",
		StationID:       "1234",
	})

	res := p.Run(context.Background(), "")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, session.ErrTokenUnavailable.Error())
	assert.Zero(t, up.apiCalls.Load())
}

func TestDepartures_JSONWithoutSession(t *testing.T) {
	up := newUpstream(t)
	p := New(testFetcher(), extract.Trips{}, nil, departures.DirectionCode{CityCode: "1"}, newClock(), Options{
		TimetableAPIURL: up.URL + "/api",
		StationID:       "1234",
	})

	_, err := p.Departures(context.Background(), "")
	assert.ErrorIs(t, err, session.ErrTokenUnavailable)
	assert.Zero(t, up.apiCalls.Load())
}

func TestDepartures_UndecodablePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"result":"failure"}`)
			return
		}
		fmt.Fprintf(w, stationPage, 1, "")
	}))
	defer srv.Close()

	fetcher := testFetcher()
	tokens := session.NewManager(fetcher, session.Options{LandingURL: srv.URL})
	p := New(fetcher, extract.Trips{}, tokens, departures.DirectionCode{CityCode: "1"}, newClock(), Options{
		TimetableAPIURL: srv.URL,
		StationID:       "1",
	})

	_, err := p.Departures(context.Background(), "")
	assert.ErrorIs(t, err, extract.ErrDecode)
}

func TestDiagnose(t *testing.T) {
	up := newUpstream(t)
	clock := newClock()
	p := newJSONPipeline(t, up, clock)

	diag := p.Diagnose(context.Background())
	assert.True(t, diag.PageAccess)
	assert.True(t, diag.TokenExtracted)
	assert.True(t, diag.APICall)
	assert.Equal(t, 3, diag.Records)
	assert.True(t, diag.Success)
	assert.Equal(t, clock.Now(), diag.Timestamp)

	// A second diagnosis always reloads the landing page
	p.Diagnose(context.Background())
	assert.EqualValues(t, 2, up.landings.Load())
}

func TestDiagnose_PageWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>maintenance</body></html>")
	}))
	defer srv.Close()

	fetcher := testFetcher()
	tokens := session.NewManager(fetcher, session.Options{LandingURL: srv.URL})
	p := New(fetcher, extract.Trips{}, tokens, departures.DirectionCode{CityCode: "1"}, newClock(), Options{
		TimetableAPIURL: srv.URL,
	})

	diag := p.Diagnose(context.Background())
	assert.True(t, diag.PageAccess)
	assert.False(t, diag.TokenExtracted)
	assert.False(t, diag.APICall)
	assert.False(t, diag.Success)
	assert.NotEmpty(t, diag.Message)
}

func TestDiagnose_HTMLWithoutSession(t *testing.T) {
	up := newUpstream(t)
	p := New(testFetcher(), extract.HTML{}, nil, departures.DestinationMatch{City: "Perth"}, newClock(), Options{
		LiveTimesURL: up.URL + "/live",
	})

	diag := p.Diagnose(context.Background())
	assert.True(t, diag.PageAccess)
	assert.False(t, diag.TokenExtracted)
	assert.True(t, diag.APICall)
	assert.Equal(t, 1, diag.Records)
	assert.True(t, diag.Success)
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	p, err := FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, p.tokens)
	assert.Equal(t, extract.ShapeHTML, p.extractor.Shape())
	assert.Equal(t, fetch.ModeDirect, p.fetcher.Mode())
	assert.Equal(t, departures.DestinationMatch{City: "Perth"}, p.disc)

	cfg.Upstream.Shape = "json"
	cfg.Station.ID = "1234"
	cfg.Fetch.Mode = "proxied"
	p, err = FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, p.tokens)
	// No key: proxied quietly falls back to direct
	assert.Equal(t, fetch.ModeDirect, p.fetcher.Mode())
	assert.Equal(t, departures.DirectionCode{CityCode: "1"}, p.disc)

	cfg.Fetch.ProxyAPIKey = "k"
	p, err = FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, fetch.ModeProxied, p.fetcher.Mode())
}

func TestPageURL(t *testing.T) {
	got, err := pageURL("https://example.org/Live-Train-Times", "Armadale Line", "Queens Park Stn")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "https://example.org/Live-Train-Times?"))
	assert.Contains(t, got, "line=Armadale+Line")
	assert.Contains(t, got, "station=Queens+Park+Stn")

	got, err = pageURL("https://example.org/Live-Train-Times", "", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/Live-Train-Times", got)
}
