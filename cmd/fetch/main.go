package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"marketbridge/internal/config"
	"marketbridge/internal/logger"
	"marketbridge/internal/pipeline"
	"marketbridge/internal/provider"
	"marketbridge/internal/provider/yahoo"
)

func main() {
	var (
		configPath   string
		providerName string
		symbolsCSV   string
		start, end   string
		window, lag  int
		summary      bool
		ohlc         bool
		timeout      int
	)

	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.json or config.yaml (optional)")
	flag.StringVar(&providerName, "provider", getenv("PROVIDER", ""), "provider name (fred, yahoo); catalog default when empty")
	flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "UNRATE"), "comma-separated series ids or tickers")
	flag.StringVar(&start, "start", "", "window start YYYY-MM-DD (default: configured lookback)")
	flag.StringVar(&end, "end", "", "window end YYYY-MM-DD (default: today)")
	flag.IntVar(&window, "window", 0, "rolling window size (default from config)")
	flag.IntVar(&lag, "lag", 0, "percent change lag (default from config)")
	flag.BoolVar(&summary, "summary", getenvBool("SUMMARY", false), "attach daily/weekly/window performance to each series")
	flag.BoolVar(&ohlc, "ohlc", false, "fetch Yahoo OHLC tables instead of closing series")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 60), "overall timeout seconds")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.Init(cfg.Log); err != nil {
		log.Fatalf("logger: %v", err)
	}

	p, err := pipeline.Build(cfg)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	symbols := config.SplitCSV(symbolsCSV)
	if len(symbols) == 0 {
		log.Fatal("no symbols provided")
	}
	base, err := dateRange(start, end)
	if err != nil {
		log.Fatal(err)
	}
	base.Provider = providerName
	if ohlc {
		base.Provider = yahoo.OHLCName
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	// A single series prints the full analytics report.
	if len(symbols) == 1 && !ohlc {
		base.Symbol = symbols[0]
		rep := p.Series(ctx, base, p.AnalyticsConfig(window, lag))
		printJSON(rep)
		if !rep.Result.OK() {
			os.Exit(1)
		}
		return
	}

	reqs := make([]provider.Request, 0, len(symbols))
	for _, s := range symbols {
		r := base
		r.Symbol = s
		reqs = append(reqs, p.Resolve(r))
	}
	p.Aggregator.Summaries = summary
	res := p.Aggregator.FetchMany(ctx, reqs)
	for _, e := range res.Entries {
		if e.Result.OK() {
			log.Infof("%s: %d points", e.Symbol, e.Result.Series.Len())
		} else {
			log.Warnf("%s: %v", e.Symbol, e.Result.Err)
		}
	}
	printJSON(res)
	if len(res.Failures()) == len(res.Entries) {
		os.Exit(1)
	}
}

func dateRange(start, end string) (provider.Request, error) {
	var req provider.Request
	var err error
	if start != "" {
		if req.Start, err = time.Parse(time.DateOnly, start); err != nil {
			return req, fmt.Errorf("invalid -start %q", start)
		}
	}
	if end != "" {
		if req.End, err = time.Parse(time.DateOnly, end); err != nil {
			return req, fmt.Errorf("invalid -end %q", end)
		}
	}
	return req, nil
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(b))
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "y":
			return true
		case "0", "false", "no", "n":
			return false
		}
	}
	return def
}
