package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/ulule/limiter/v3"
	mlimit "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/liut/beeview/pkg/models/aigc"
	"github.com/liut/beeview/pkg/services/beeapi"
	"github.com/liut/beeview/pkg/services/llm"
	"github.com/liut/beeview/pkg/services/stores"
	"github.com/liut/beeview/pkg/services/viewer"
	"github.com/liut/beeview/pkg/settings"
)

type Service interface {
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Config struct {
	Addr  string
	Debug bool

	DocHandler http.Handler

	Bee      beeapi.Client
	Streamer llm.Streamer
	Sessions stores.Sessions
	Events   *stores.EventLog
	Preset   aigc.Preset
}

type server struct {
	Addr string
	cfg  Config

	ar *chi.Mux     // app router
	hs *http.Server // http server

	ctl      *viewer.Controller
	sessions stores.Sessions
	events   *stores.EventLog
	preset   aigc.Preset
}

// New return new web server
func New(cfg Config) Service {
	return newServer(cfg)
}

func newServer(cfg Config) *server {
	ar := chi.NewMux()
	if cfg.Debug {
		ar.Use(middleware.Logger)
	}
	ar.Use(middleware.Recoverer, middleware.RealIP)
	ar.Use(cors.New(cors.Options{
		AllowedOrigins:   settings.Current.AllowOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", headerAPIKey, headerTabID},
		AllowCredentials: !settings.AllowAllOrigins(),
	}).Handler)

	if cfg.Sessions == nil {
		cfg.Sessions = stores.NewMemorySessions()
	}
	if cfg.Events == nil {
		cfg.Events = stores.NewEventLog(settings.Current.EventLogSize)
	}

	s := &server{
		Addr: cfg.Addr, ar: ar,
		cfg:      cfg,
		ctl:      viewer.New(cfg.Bee, cfg.Streamer, cfg.Sessions),
		sessions: cfg.Sessions,
		events:   cfg.Events,
		preset:   cfg.Preset,
	}
	s.strapRouter()

	s.hs = &http.Server{
		Addr:              s.Addr,
		Handler:           s.ar,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Debug {
		logger().Infow("routes:")
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			route = strings.Replace(route, "/*/", "/", -1)
			fmt.Fprintf(os.Stderr, "DEBUG: %-6s %-32s --> %s (%d mw)\n", method, route, nameOfFunction(handler), len(middlewares))
			return nil
		}

		if err := chi.Walk(ar, walkFunc); err != nil {
			logger().Infow("router walk fail", "err", err)
		}
	}
	return s
}

func (s *server) Serve(ctx context.Context) error {
	// Run HTTP server
	runErrChan := make(chan error, 1)
	t := time.AfterFunc(time.Millisecond*200, func() {
		runErrChan <- s.hs.ListenAndServe()
	})

	defer t.Stop()
	logger().Infow("Listen on", "addr", s.hs.Addr)

	select {
	case runErr := <-runErrChan:
		if runErr != nil && runErr != http.ErrServerClosed {
			logger().Infow("run http server failed", "err", runErr)
			return runErr
		}
		return nil
	case <-ctx.Done():
		logger().Info("http server has been stopped")
		return ctx.Err()
	}
}

func (s *server) Stop(ctx context.Context) error {
	if err := s.hs.Shutdown(ctx); err != nil {
		logger().Infow("Server Shutdown", "err", err)
		return err
	}
	return nil
}

func rateLimiter() func(http.Handler) http.Handler {
	rate, err := limiter.NewRateFromFormatted(settings.Current.RateLimit)
	if err != nil {
		logger().Infow("invalid rate limit, disabled", "rate", settings.Current.RateLimit, "err", err)
		return func(next http.Handler) http.Handler { return next }
	}
	return mlimit.NewMiddleware(limiter.New(memory.NewStore(), rate)).Handler
}
