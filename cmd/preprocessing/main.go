package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/lintang-b-s/transitplanner/pkg/config"
	"github.com/lintang-b-s/transitplanner/pkg/metrics"
	"github.com/lintang-b-s/transitplanner/pkg/planner"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	configFile  = flag.String("config", "", "planner config file")
	networkFile = flag.String("f", "", "network description, overrides the config")
	cacheDir    = flag.String("cache", "", "interchange cache dir, overrides the config")
	cpuprofile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile  = flag.String("memprofile", "", "write memory profile to this file")
)

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		// ./bin/transitplanner-preprocessing -cpuprofile=preprocessing.prof -memprofile=preprocessing.mprof
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *networkFile != "" {
		cfg.Network.File = *networkFile
	}
	if *cacheDir != "" {
		cfg.Cache.Dir = *cacheDir
	}
	slog.SetDefault(cfg.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	p, err := planner.Open(ctx, cfg, m, true)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()
	recordMemProfile(memprofile, "interchange_index")
	if !p.Persisted {
		p.Close()
		log.Fatal("interchange index built but not saved, see the log for the cache error")
	}

	fmt.Printf("\ninterchange index for %d routes saved, depth %d, %d connections\n",
		p.RouteIndex.Size(), p.Interchanges.Depth(), p.Interchanges.NumberOfConnections())
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
