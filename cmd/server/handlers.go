package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"marketbridge/internal/aggregate"
	"marketbridge/internal/analytics"
	"marketbridge/internal/config"
	"marketbridge/internal/pipeline"
	"marketbridge/internal/provider"
	"marketbridge/internal/provider/yahoo"
)

const maxSymbols = 100

// defaultStart is where market pages begin when no start date is given.
var defaultStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type server struct {
	p       *pipeline.Pipeline
	timeout time.Duration
}

func newServer(p *pipeline.Pipeline, timeout time.Duration) *server {
	return &server{p: p, timeout: timeout}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"), withJSONHeaders, limitBody)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/series", s.handleSeries)
		r.Get("/series/many", s.handleSeriesMany)
		r.Get("/ohlc", s.handleOHLC)
		r.Get("/recommendations", s.handleTables(yahoo.RecommendationsName, func(p *pipeline.Pipeline) []string { return p.Catalog.Recommendations }))
		r.Get("/profile", s.handleTables(yahoo.ProfileName, func(p *pipeline.Pipeline) []string { return p.Catalog.Stocks }))
		r.Get("/overview", s.handleOverview)
		r.Get("/sectors", s.handleSectors)
		r.Get("/sectors/{etf}", s.handleSector)
	})
	return r
}

func (s *server) context(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.p.Catalog)
}

func (s *server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := strings.TrimSpace(q.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	req, err := parseRange(q.Get("start"), q.Get("end"), time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	window, err := parseInt(q.Get("window"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid window: "+err.Error())
		return
	}
	lag, err := parseInt(q.Get("lag"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid lag: "+err.Error())
		return
	}
	req.Provider, req.Symbol = strings.TrimSpace(q.Get("provider")), symbol

	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.p.Series(ctx, req, s.p.AnalyticsConfig(window, lag)))
}

type manyResponse struct {
	Entries  []aggregate.Entry   `json:"entries,omitempty"`
	Rows     []aggregate.LongRow `json:"rows,omitempty"`
	Failures []aggregate.Entry   `json:"failures,omitempty"`
}

func (s *server) handleSeriesMany(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbols, ok := symbolsParam(w, q.Get("symbols"), nil)
	if !ok {
		return
	}
	base, err := parseRange(q.Get("start"), q.Get("end"), time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	base.Provider = strings.TrimSpace(q.Get("provider"))

	reqs := make([]provider.Request, 0, len(symbols))
	for _, sym := range symbols {
		req := base
		req.Symbol = sym
		reqs = append(reqs, s.p.Resolve(req))
	}

	ctx, cancel := s.context(r)
	defer cancel()
	res := s.p.Aggregator.FetchMany(ctx, reqs)

	if q.Get("format") == "long" {
		writeJSON(w, http.StatusOK, manyResponse{Rows: res.LongForm(), Failures: res.Failures()})
		return
	}
	if truthy(q.Get("summary")) {
		for i, e := range res.Entries {
			if e.Result.OK() && e.Summary == nil {
				perf := analytics.Summarize(e.Result.Series)
				res.Entries[i].Summary = &perf
			}
		}
	}
	writeJSON(w, http.StatusOK, manyResponse{Entries: res.Entries})
}

func (s *server) handleOHLC(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := strings.TrimSpace(q.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol query param")
		return
	}
	req, err := parseRange(q.Get("start"), q.Get("end"), defaultStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Provider, req.Symbol = yahoo.OHLCName, symbol

	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.p.Aggregator.Fetch(ctx, req))
}

type tablesResponse struct {
	aggregate.MergedTable
	Totals   []aggregate.SymbolTotal `json:"totals"`
	Failures []aggregate.Entry       `json:"failures,omitempty"`
}

// handleTables serves a table-shaped operation for the symbols query param,
// or for the catalog default when it is absent.
func (s *server) handleTables(op string, defaults func(*pipeline.Pipeline) []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbols, ok := symbolsParam(w, r.URL.Query().Get("symbols"), defaults(s.p))
		if !ok {
			return
		}
		ctx, cancel := s.context(r)
		defer cancel()
		table, failures := s.p.Tables(ctx, op, symbols)
		writeJSON(w, http.StatusOK, tablesResponse{MergedTable: table, Totals: table.Totals(), Failures: failures})
	}
}

func (s *server) handleOverview(w http.ResponseWriter, r *http.Request) {
	base, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), defaultStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, s.p.Overview(ctx, base))
}

func (s *server) handleSectors(w http.ResponseWriter, r *http.Request) {
	base, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), defaultStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	writeJSON(w, http.StatusOK, map[string]any{"sectors": s.p.Sectors(ctx, base)})
}

func (s *server) handleSector(w http.ResponseWriter, r *http.Request) {
	base, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"), defaultStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := s.context(r)
	defer cancel()
	detail, ok := s.p.Sector(ctx, chi.URLParam(r, "etf"), base)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown sector ETF")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// parseRange reads optional YYYY-MM-DD bounds into a request.
func parseRange(start, end string, defStart time.Time) (provider.Request, error) {
	req := provider.Request{Start: defStart}
	var err error
	if start = strings.TrimSpace(start); start != "" {
		if req.Start, err = time.Parse(time.DateOnly, start); err != nil {
			return req, fmt.Errorf("invalid start date %q", start)
		}
	}
	if end = strings.TrimSpace(end); end != "" {
		if req.End, err = time.Parse(time.DateOnly, end); err != nil {
			return req, fmt.Errorf("invalid end date %q", end)
		}
	}
	if !req.End.IsZero() && req.Start.After(req.End) {
		return req, fmt.Errorf("start %s is after end %s", req.Start.Format(time.DateOnly), end)
	}
	return req, nil
}

func parseInt(v string) (int, error) {
	if v = strings.TrimSpace(v); v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

func symbolsParam(w http.ResponseWriter, raw string, defaults []string) ([]string, bool) {
	symbols := config.SplitCSV(raw)
	if len(symbols) == 0 {
		symbols = defaults
	}
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return nil, false
	}
	if len(symbols) > maxSymbols {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many symbols (max %d)", maxSymbols))
		return nil, false
	}
	return symbols, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Warn("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
