package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/redtapehq/redtape/kvstore"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "redtape",
		Usage:   "instrumented key-value cache service",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for the backend store; empty runs on in-process memory",
			EnvVars: []string{"REDTAPE_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"REDTAPE_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		serveCmd,
		storeCmd,
		getCmd,
		getPageCmd,
		replayCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// setupStore picks the backend: redis when --redis-url is set, otherwise a
// process-local memory store.
func setupStore(cctx *cli.Context) (kvstore.Store, error) {
	if u := cctx.String("redis-url"); u != "" {
		return kvstore.NewRedisStore(u)
	}
	return kvstore.NewMemStore(), nil
}
