package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lintang-b-s/transitplanner/pkg/config"
	"github.com/lintang-b-s/transitplanner/pkg/datastructure"
	"github.com/lintang-b-s/transitplanner/pkg/engine/search"
	"github.com/lintang-b-s/transitplanner/pkg/engine/selector"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
	"github.com/lintang-b-s/transitplanner/pkg/planner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	configFile = flag.String("config", "", "planner config file")
	from       = flag.String("from", "", "origin station or group id")
	to         = flag.String("to", "", "destination station or group id")
	date       = flag.String("date", time.Now().Format(time.DateOnly), "travel date, YYYY-MM-DD")
	at         = flag.String("time", "08:00", "earliest departure, HH:MM")
	changes    = flag.Int("changes", -1, "maximum changes, the config value when negative")
	strategy   = flag.String("selector", "", "depth_first, breadth_first or grid")
	serve      = flag.Bool("serve", false, "keep running and serve /metrics and /debug")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(cfg.Logger())

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := planner.Open(ctx, cfg, m, false)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	recordMemProfile(memprofile, "planner_ready")

	if *from != "" && *to != "" {
		if err := plan(ctx, p, cfg.Search); err != nil {
			log.Fatal(err)
		}
	}
	if !*serve {
		return
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/debug", middleware.Profiler())
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %d routes\n", p.RouteIndex.Size())
	})

	slog.Info("ops server started", "addr", cfg.Server.ListenAddr)
	log.Fatal(http.ListenAndServe(cfg.Server.ListenAddr, r))
}

func plan(ctx context.Context, p *planner.Planner, defaults search.Options) error {
	day, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return err
	}
	start, err := datastructure.ParseTramTime(*at)
	if err != nil {
		return err
	}
	opts := defaults
	if *changes >= 0 {
		opts.MaxChanges = *changes
	}
	if *strategy != "" {
		kind, err := selector.ParseKind(*strategy)
		if err != nil {
			return err
		}
		opts.Selector = kind
	}

	stream, err := p.Search.Search(ctx, search.SearchRequest{
		Origins:      []search.Location{search.StationLocation(*from)},
		Destinations: []search.Location{search.StationLocation(*to)},
		Date:         day,
		StartTime:    start,
		Options:      opts,
	})
	if err != nil {
		return err
	}
	journeys := stream.Collect(0)
	if err := stream.Err(); err != nil {
		return err
	}
	search.SortJourneys(journeys)

	fmt.Printf("%s -> %s on %s after %s: %s (%d nodes)\n", *from, *to, *date, start,
		stream.Outcome().Describe(), stream.NodesVisited())
	for i, j := range journeys {
		fmt.Printf("\n%d. %s - %s, %d changes, %s\n", i+1, j.DepartAt, j.ArriveAt, j.Changes, j.Duration())
		for _, st := range j.Stages {
			fmt.Printf("   %-7s %-5s %s -> %s  %s %s %s\n", st.Kind, st.Mode, st.DepartAt, st.ArriveAt,
				st.From, st.To, st.Route)
		}
		fmt.Printf("   polyline %s\n", j.Polyline(p.StationLocation))
	}
	return nil
}

func recordMemProfile(memprofile *string, name string) {
	if *memprofile != "" {
		*memprofile = strings.Replace(*memprofile, ".mprof", fmt.Sprintf("%s.mprof", name), -1)
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
