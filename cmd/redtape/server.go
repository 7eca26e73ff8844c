package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redtapehq/redtape/blobstore"
	"github.com/redtapehq/redtape/kvstore"
	"github.com/redtapehq/redtape/pkg/robusthttp"
	"github.com/redtapehq/redtape/webcache"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/time/rate"
)

type Server struct {
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger
	kv     kvstore.Store
	blobs  *blobstore.BlobStore
	pages  *webcache.WebCache
}

// The middleware's collectors register with the default prometheus registry
// at creation, so create it once and share it across server instances.
var echoMetrics = echoprometheus.NewMiddleware("redtape")

type Config struct {
	Logger         *slog.Logger
	Bind           string
	CacheTTL       time.Duration
	FetchRateLimit int
	FlushOnStart   bool
}

func NewServer(kv kvstore.Store, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var blobOpts []blobstore.Option
	if config.FlushOnStart {
		blobOpts = append(blobOpts, blobstore.WithFlush())
	}
	blobs, err := blobstore.New(kv, blobOpts...)
	if err != nil {
		return nil, err
	}

	fetch := webcache.NewHTTPFetcher(
		robusthttp.NewClient(robusthttp.WithLogger(logger)),
		webcache.WithLimiter(rate.NewLimiter(rate.Limit(config.FetchRateLimit), 1)),
	)
	cacheOpts := []webcache.Option{}
	if config.CacheTTL > 0 {
		cacheOpts = append(cacheOpts, webcache.WithTTL(config.CacheTTL))
	}
	pages := webcache.New(kv, fetch, cacheOpts...)

	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		echo:   e,
		logger: logger,
		kv:     kv,
		blobs:  blobs,
		pages:  pages,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           config.Bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(echoMetrics)
	e.Use(middleware.BodyLimit("4M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/v1/blobs", srv.HandleStoreBlob)
	e.GET("/v1/blobs/:key", srv.HandleGetBlob)
	e.GET("/v1/page", srv.HandleGetPage)
	e.GET("/v1/page/requests", srv.HandlePageRequests)
	e.GET("/v1/ops/:name/count", srv.HandleOpCount)
	e.GET("/v1/ops/:name/replay", srv.HandleOpReplay)

	return srv, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) RunAPI() error {
	slog.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	slog.Info("registering OS exit signal handler")
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		slog.Info("received OS exit signal", "signal", sig)

		// Shut down the HTTP server
		if err := srv.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}

		// Trigger the return that causes an exit.
		close(quit)
	}()
	<-quit
	slog.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) Shutdown() error {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
