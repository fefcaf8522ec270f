// app.go: command tree and shared runtime for the lazycache demo CLI
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/apex/log"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/agilira/lazycache"
	mylog "github.com/agilira/lazycache/internal/log"
	lazyotel "github.com/agilira/lazycache/otel"
	lazyprom "github.com/agilira/lazycache/prometheus"
)

const runtimeKey = "runtime"

// runtime is the cache and its surroundings, built once per invocation.
type runtime struct {
	cache    lazycache.Cache
	hot      *lazycache.HotConfig
	server   *http.Server
	provider *sdkmetric.MeterProvider
	out      io.Writer
}

// NewApp builds the command tree. out receives user-facing output.
func NewApp(out io.Writer) *cli.Command {
	app := &cli.Command{
		Name:    "lazycache",
		Usage:   "explore lazily populated caching: single-flight, expiration, retries",
		Version: lazycache.Version,
		Writer:  out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "watch a JSON/YAML/TOML file for retry and expiration settings",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address, e.g. :2112",
			},
			&cli.StringFlag{
				Name:  "metrics-backend",
				Usage: "metrics pipeline: otel or prometheus",
				Value: "otel",
				Validator: func(value string) error {
					if value != "otel" && value != "prometheus" {
						return fmt.Errorf("unknown metrics backend %q", value)
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars(mylog.EnvLevel),
			},
		},
		Before: before,
		After:  after,
	}

	app.Commands = append(app.Commands,
		getCommand(),
		expireCommand(),
		retryCommand(),
		stampedeCommand(),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}

func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	mylog.InitLogger(cmd.ErrWriter, cmd.String("log-level"))

	rt, err := newRuntime(cmd)
	if err != nil {
		return ctx, err
	}
	if cmd.Metadata == nil {
		cmd.Metadata = map[string]any{}
	}
	cmd.Metadata[runtimeKey] = rt
	return ctx, nil
}

func after(ctx context.Context, cmd *cli.Command) error {
	rt, ok := cmd.Metadata[runtimeKey].(*runtime)
	if !ok {
		return nil
	}
	return rt.close(ctx)
}

// getRuntime returns the runtime installed on the root command by before.
func getRuntime(cmd *cli.Command) *runtime {
	rt, _ := cmd.Root().Metadata[runtimeKey].(*runtime)
	return rt
}

func newRuntime(cmd *cli.Command) (*runtime, error) {
	rt := &runtime{out: cmd.Root().Writer}
	logger := mylog.NewAdapter(nil)

	config := lazycache.DefaultConfig()
	config.Logger = logger
	config.OnRetry = func(key string, attempt, maxAttempts int, err error) {
		fmt.Fprintf(rt.out, "Exception caught, retrying (%d/%d): %v\n", attempt, maxAttempts, err)
	}

	var reg *prom.Registry
	if addr := cmd.String("metrics-addr"); addr != "" {
		reg = prom.NewRegistry()
		collector, err := rt.metricsCollector(cmd.String("metrics-backend"), reg)
		if err != nil {
			return nil, err
		}
		config.MetricsCollector = collector
	}

	rt.cache = lazycache.NewCache(config)

	if reg != nil {
		rt.serveMetrics(cmd.String("metrics-addr"), reg)
	}

	if path := cmd.String("config"); path != "" {
		hot, err := lazycache.NewHotConfig(rt.cache, lazycache.HotConfigOptions{
			ConfigPath: path,
			Logger:     logger,
			OnReload: func(_, s lazycache.HotSettings) {
				log.WithFields(log.Fields{
					"max_attempts":       s.RetryPolicy.MaxAttempts,
					"default_expiration": s.DefaultExpiration.String(),
				}).Info("configuration reloaded")
			},
		})
		if err != nil {
			_ = rt.close(context.Background())
			return nil, err
		}
		if err := hot.Start(); err != nil {
			_ = rt.close(context.Background())
			return nil, err
		}
		rt.hot = hot
	}

	return rt, nil
}

func (rt *runtime) metricsCollector(backend string, reg *prom.Registry) (lazycache.MetricsCollector, error) {
	if backend == "prometheus" {
		return lazyprom.NewCollector(reg)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}
	rt.provider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	return lazyotel.NewOTelMetricsCollector(rt.provider)
}

func (rt *runtime) serveMetrics(addr string, reg *prom.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	rt.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := rt.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.Infof("metrics available at http://%s/metrics", addr)
}

func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	if rt.hot != nil {
		errs = append(errs, rt.hot.Stop())
	}
	if rt.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		errs = append(errs, rt.server.Shutdown(shutdownCtx))
		cancel()
	}
	if rt.provider != nil {
		errs = append(errs, rt.provider.Shutdown(ctx))
	}
	if rt.cache != nil {
		errs = append(errs, rt.cache.Close())
	}
	return errors.Join(errs...)
}

// printStats writes the cache counters in a fixed layout.
func printStats(w io.Writer, s lazycache.CacheStats) {
	fmt.Fprintf(w, "stats: hits=%d misses=%d populations=%d coalesced=%d retries=%d failures=%d expirations=%d size=%d\n",
		s.Hits, s.Misses, s.Populations, s.Coalesced, s.Retries, s.Failures, s.Expirations, s.Size)
}
