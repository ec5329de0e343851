package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"trainboard/pkg/departures"
	"trainboard/pkg/extract"
	"trainboard/pkg/fetch"
	"trainboard/pkg/session"
)

// Tokens is the part of session.Manager the pipeline depends on
type Tokens interface {
	Get(ctx context.Context) (session.Token, error)
	Refresh(ctx context.Context) (session.Token, error)
	Invalidate()
}

// Options describes the station and the upstream endpoints
type Options struct {
	LiveTimesURL    string
	TimetableAPIURL string

	StationName string
	StationID   string
	Lines       []string
}

// Result is what one run produces. Failures are reported in Error, never returned.
type Result struct {
	Success     bool
	Board       departures.Board
	LastUpdated time.Time
	Error       string
}

// Pipeline fetches, extracts and classifies departures for one station
type Pipeline struct {
	fetcher   fetch.Strategy
	extractor extract.Extractor
	tokens    Tokens
	disc      departures.Discriminator
	clock     departures.Clock
	opts      Options
}

// New assembles a pipeline. tokens may be nil when the upstream needs no session;
// the json shape always needs one.
func New(fetcher fetch.Strategy, extractor extract.Extractor, tokens Tokens, disc departures.Discriminator, clock departures.Clock, opts Options) *Pipeline {
	if clock == nil {
		clock = departures.OperatorClock{}
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		tokens:    tokens,
		disc:      disc,
		clock:     clock,
		opts:      opts,
	}
}

// Run performs one full fetch and never fails: problems end up in Result.Error with empty buckets.
// stationOverride replaces the configured station for this run only.
func (p *Pipeline) Run(ctx context.Context, stationOverride string) Result {
	board, err := p.Departures(ctx, stationOverride)
	now := p.clock.Now().In(departures.OperatorZone)
	if err != nil {
		log.Error().Err(err).Str("station", p.station(stationOverride)).Msg("departures run failed")
		return Result{
			Success:     false,
			Board:       departures.Board{Toward: []departures.Departure{}, Away: []departures.Departure{}},
			LastUpdated: now,
			Error:       err.Error(),
		}
	}

	log.Info().
		Int("toward", len(board.Toward)).
		Int("away", len(board.Away)).
		Msg("departures run finished")

	return Result{Success: true, Board: board, LastUpdated: now}
}

// Departures runs the pipeline and returns the classified board or the first failure.
// Cancelling ctx does not abort an upstream request already in flight.
func (p *Pipeline) Departures(ctx context.Context, station string) (departures.Board, error) {
	ctx = context.WithoutCancel(ctx)

	var tok *session.Token
	if p.tokens != nil {
		t, err := p.tokens.Get(ctx)
		if err != nil {
			return departures.Board{}, err
		}
		tok = &t
	}

	rows, err := p.fetchRows(ctx, station, tok)
	if err != nil {
		if errors.Is(err, fetch.ErrAccessDenied) && p.tokens != nil {
			p.tokens.Invalidate()
		}
		return departures.Board{}, err
	}

	ref := p.clock.Now().In(departures.OperatorZone)
	return departures.Classify(rows, ref, p.disc), nil
}

// Diagnostics reports how far a run got, stage by stage
type Diagnostics struct {
	PageAccess     bool
	TokenExtracted bool
	APICall        bool
	Records        int
	Success        bool
	Message        string
	Timestamp      time.Time
}

// Diagnose runs every stage with a freshly loaded token and reports which ones worked
func (p *Pipeline) Diagnose(ctx context.Context) Diagnostics {
	ctx = context.WithoutCancel(ctx)
	diag := Diagnostics{Timestamp: p.clock.Now().In(departures.OperatorZone)}

	var tok *session.Token
	if p.tokens != nil {
		t, err := p.tokens.Refresh(ctx)
		diag.PageAccess = err == nil || errors.Is(err, session.ErrNoToken)
		diag.TokenExtracted = err == nil
		if err != nil {
			diag.Message = err.Error()
			return diag
		}
		tok = &t
	} else {
		if _, err := p.fetcher.Fetch(ctx, fetch.Get(p.opts.LiveTimesURL)); err != nil {
			diag.Message = fmt.Sprintf("loading station page: %v", err)
			return diag
		}
		diag.PageAccess = true
	}

	rows, err := p.fetchRows(ctx, "", tok)
	if err != nil {
		diag.Message = err.Error()
		return diag
	}
	diag.APICall = true
	diag.Records = len(rows)
	diag.Success = diag.Records > 0

	if diag.Success {
		diag.Message = fmt.Sprintf("found %d departure records", diag.Records)
	} else {
		diag.Message = "upstream answered but no departure records were found"
	}
	return diag
}

func (p *Pipeline) station(override string) string {
	if override != "" {
		return override
	}
	if p.extractor.Shape() == extract.ShapeJSON {
		return p.opts.StationID
	}
	return p.opts.StationName
}

func (p *Pipeline) fetchRows(ctx context.Context, station string, tok *session.Token) ([]departures.RawRow, error) {
	station = p.station(station)

	if p.extractor.Shape() == extract.ShapeJSON {
		if tok == nil {
			return nil, fmt.Errorf("%w: the timetable endpoint needs a session", session.ErrTokenUnavailable)
		}
		return p.fetchTrips(ctx, station, *tok)
	}
	return p.fetchPages(ctx, station, tok)
}

// fetchPages loads the station page once per configured line, one after another
func (p *Pipeline) fetchPages(ctx context.Context, station string, tok *session.Token) ([]departures.RawRow, error) {
	lines := p.opts.Lines
	if len(lines) == 0 {
		lines = []string{""}
	}

	var rows []departures.RawRow
	for _, line := range lines {
		target, err := pageURL(p.opts.LiveTimesURL, line, station)
		if err != nil {
			return nil, err
		}

		req := fetch.Get(target)
		if tok != nil {
			req.Cookies = tok.Cookies
		}

		res, err := p.fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("fetching departures for line %q: %w", line, err)
		}

		lineRows, err := p.extractor.Extract(res.Body)
		if err != nil {
			return nil, fmt.Errorf("reading departures for line %q: %w", line, err)
		}
		log.Debug().Str("line", line).Int("rows", len(lineRows)).Msg("extracted line departures")
		rows = append(rows, lineRows...)
	}
	return rows, nil
}

func (p *Pipeline) fetchTrips(ctx context.Context, stationID string, tok session.Token) ([]departures.RawRow, error) {
	now := p.clock.Now().In(departures.OperatorZone)
	form := url.Values{
		"StationId":         {stationID},
		"SearchDate":        {now.Format("2006-01-02")},
		"SearchTime":        {now.Format("15:04")},
		"IsRealTimeChecked": {"true"},
	}

	req := fetch.PostForm(p.opts.TimetableAPIURL, form)
	req.Header.Set("RequestVerificationToken", tok.Value)
	req.Header.Set("ModuleId", tok.ModuleID)
	req.Header.Set("TabId", tok.TabID)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Cookies = tok.Cookies

	res, err := p.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("calling timetable endpoint: %w", err)
	}

	return p.extractor.Extract(res.Body)
}

func pageURL(base, line, station string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid live times url %q: %w", base, err)
	}
	q := u.Query()
	if line != "" {
		q.Set("line", line)
	}
	if station != "" {
		q.Set("station", station)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
