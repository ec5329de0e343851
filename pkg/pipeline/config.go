package pipeline

import (
	"trainboard/pkg/config"
	"trainboard/pkg/departures"
	"trainboard/pkg/extract"
	"trainboard/pkg/fetch"
	"trainboard/pkg/session"
)

// FromConfig wires the fetch mode, extractor, session and discriminator chosen in cfg.
// The json shape always runs with a session; clock may be nil.
func FromConfig(cfg *config.AppConfig, clock departures.Clock) (*Pipeline, error) {
	fetcher, err := fetch.New(fetch.Options{
		Mode:          fetch.Mode(cfg.ResolvedMode()),
		Timeout:       cfg.Fetch.Timeout,
		Attempts:      cfg.Fetch.Attempts,
		RetryDelay:    cfg.Fetch.RetryDelay,
		ProxyEndpoint: cfg.Fetch.ProxyEndpoint,
		ProxyAPIKey:   cfg.Fetch.ProxyAPIKey,
		ProxyRender:   cfg.Fetch.ProxyRender,
		WaitFor:       cfg.Fetch.WaitFor,
		ChromePath:    cfg.Fetch.ChromePath,
	})
	if err != nil {
		return nil, err
	}

	shape := extract.Shape(cfg.Upstream.Shape)
	extractor, err := extract.New(shape, cfg.Upstream.TableSelector)
	if err != nil {
		return nil, err
	}

	var tokens Tokens
	if cfg.Session.Enabled || shape == extract.ShapeJSON {
		tokens = session.NewManager(fetcher, session.Options{
			LandingURL: cfg.Upstream.LiveTimesURL,
			TTL:        cfg.Session.TTL,
			ModuleID:   cfg.Upstream.ModuleID,
			TabID:      cfg.Upstream.TabID,
		})
	}

	return New(fetcher, extractor, tokens, Discriminator(cfg), clock, Options{
		LiveTimesURL:    cfg.Upstream.LiveTimesURL,
		TimetableAPIURL: cfg.Upstream.TimetableAPIURL,
		StationName:     cfg.Station.Name,
		StationID:       cfg.Station.ID,
		Lines:           cfg.Station.Lines,
	}), nil
}

// Discriminator picks the direction rule for the configured payload shape: the json shape
// carries a direction code, the html page only a destination name.
func Discriminator(cfg *config.AppConfig) departures.Discriminator {
	if cfg.Upstream.Shape == string(extract.ShapeJSON) {
		return departures.DirectionCode{CityCode: cfg.Station.CityDirectionCode}
	}
	return departures.DestinationMatch{City: cfg.Station.CityName}
}
