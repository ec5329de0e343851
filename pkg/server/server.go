package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"trainboard/pkg/departures"
	"trainboard/pkg/pipeline"
)

// Board is what the handlers need from the departures pipeline
type Board interface {
	Run(ctx context.Context, stationOverride string) pipeline.Result
	Diagnose(ctx context.Context) pipeline.Diagnostics
}

// Server exposes the departures board as a small JSON API
type Server struct {
	board   Board
	station string
	now     func() time.Time
}

// New creates the API server for station
func New(board Board, station string) *Server {
	return &Server{
		board:   board,
		station: station,
		now:     func() time.Time { return time.Now().In(departures.OperatorZone) },
	}
}

type departuresResponse struct {
	Success     bool                   `json:"success"`
	Perth       []departures.Departure `json:"perth"`
	South       []departures.Departure `json:"south"`
	LastUpdated string                 `json:"last_updated"`
	Error       string                 `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type diagnosticsResponse struct {
	PageAccess     bool   `json:"page_access"`
	TokenExtracted bool   `json:"token_extracted"`
	APICall        bool   `json:"api_call"`
	Records        int    `json:"records"`
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Timestamp      string `json:"timestamp"`
}

// Handler returns the router with CORS and access logging applied
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(cors)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/departures", s.handleDepartures).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/test", s.handleTest).Methods(http.MethodGet, http.MethodOptions)

	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleDepartures always answers 200; failures are reported in the body
func (s *Server) handleDepartures(w http.ResponseWriter, r *http.Request) {
	res := s.board.Run(r.Context(), r.URL.Query().Get("station_id"))

	writeJSON(w, departuresResponse{
		Success:     res.Success,
		Perth:       nonNil(res.Board.Toward),
		South:       nonNil(res.Board.Away),
		LastUpdated: res.LastUpdated.Format(time.RFC3339),
		Error:       res.Error,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:    "healthy",
		Timestamp: s.now().Format(time.RFC3339),
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	diag := s.board.Diagnose(r.Context())

	writeJSON(w, diagnosticsResponse{
		PageAccess:     diag.PageAccess,
		TokenExtracted: diag.TokenExtracted,
		APICall:        diag.APICall,
		Records:        diag.Records,
		Success:        diag.Success,
		Message:        diag.Message,
		Timestamp:      diag.Timestamp.Format(time.RFC3339),
	})
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Station}} departures</title></head>
<body style="font-family: sans-serif; padding: 40px; max-width: 600px; margin: 0 auto;">
<h1>{{.Station}} departures</h1>
<p><strong>Status:</strong> running</p>
<h2>Endpoints</h2>
<ul>
<li><a href="/api/health">/api/health</a> - health check</li>
<li><a href="/api/departures">/api/departures</a> - departures toward and away from the city</li>
<li><a href="/api/test">/api/test</a> - upstream diagnostics</li>
</ul>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, struct{ Station string }{s.station}); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("rendering index page")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func nonNil(deps []departures.Departure) []departures.Departure {
	if deps == nil {
		return []departures.Departure{}
	}
	return deps
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down gracefully
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
