package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/drpcorg/swarmdb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Environment: SWARMDB_CONFIG is the yaml config path, SWARMDB_METRICS
// is the address to serve /metrics on. Both may come from .env
func main() {
	_ = godotenv.Load()

	var cfg swarmdb.Config
	if path := os.Getenv("SWARMDB_CONFIG"); path != "" {
		var err error
		if cfg, err = swarmdb.LoadConfig(path); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(-1)
		}
	}

	node, err := swarmdb.OpenNode(cfg, Types())
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer node.Close()

	if addr := os.Getenv("SWARMDB_METRICS"); addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(swarmdb.Collectors()...)
		reg.MustRegister(node.Replica.Collector())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			_ = http.ListenAndServe(addr, mux)
		}()
	}

	repl := REPL{Node: node}
	if err = repl.Open(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer repl.Close()
	_, _ = fmt.Fprintf(os.Stderr, "replica %s, scheme %s\n", node.Replica.Origin(), node.Replica.Scheme())

	var out string
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
			err = nil
		} else if out != "" {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", out)
		}
		out, err = repl.REPL()
	}
}

