package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/redtapehq/redtape/internal/ticker"
	"github.com/redtapehq/redtape/kvstore"
	"github.com/redtapehq/redtape/pkg/metrics"
	"github.com/redtapehq/redtape/webcache"

	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the redtape API daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "bind",
			Usage:    "Specify the local IP/port to bind to",
			Required: false,
			Value:    ":8700",
			EnvVars:  []string{"REDTAPE_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":8701",
			EnvVars: []string{"REDTAPE_METRICS_LISTEN"},
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "how long fetched pages stay cached",
			Value:   webcache.DefaultTTL,
			EnvVars: []string{"REDTAPE_CACHE_TTL"},
		},
		&cli.IntFlag{
			Name:    "fetch-rate-limit",
			Usage:   "max number of outbound page fetches per second",
			Value:   8,
			EnvVars: []string{"REDTAPE_FETCH_RATE_LIMIT"},
		},
		&cli.BoolFlag{
			Name:    "flush-on-start",
			Usage:   "wipe the backend store before serving (dangerous with redis)",
			EnvVars: []string{"REDTAPE_FLUSH_ON_START"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx, os.Stdout)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("redtape"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
				)),
			)
			otel.SetTracerProvider(tp)
		}

		kv, err := setupStore(cctx)
		if err != nil {
			return err
		}

		// The memory backend reclaims expired entries lazily on read; sweep it
		// so keys nothing reads again don't pile up.
		if mem, ok := kv.(*kvstore.MemStore); ok {
			go func() {
				_ = ticker.Periodically(ctx, time.Minute, "memstore-prune", mem.Prune)
			}()
		}

		srv, err := NewServer(
			kv,
			Config{
				Logger:         logger,
				Bind:           cctx.String("bind"),
				CacheTTL:       cctx.Duration("cache-ttl"),
				FetchRateLimit: cctx.Int("fetch-rate-limit"),
				FlushOnStart:   cctx.Bool("flush-on-start"),
			},
		)
		if err != nil {
			return fmt.Errorf("failed to construct server: %v", err)
		}

		// prometheus, pprof, ping, version
		go func() {
			runtime.SetBlockProfileRate(10)
			runtime.SetMutexProfileFraction(10)
			if err := metrics.RunServer(ctx, cancel, cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.RunAPI()
	},
}
