package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	staffio "github.com/liut/staffio-client"
	"go.uber.org/zap"

	"github.com/liut/campus-assistant/pkg/models/chat"
	"github.com/liut/campus-assistant/pkg/services/assistant"
	"github.com/liut/campus-assistant/pkg/services/markup"
	"github.com/liut/campus-assistant/pkg/services/stores"
	"github.com/liut/campus-assistant/pkg/settings"
)

type Service interface {
	Serve(ctx context.Context) error
	Stop(ctx context.Context) error
}

type Config struct {
	Addr  string
	Debug bool

	DocHandler http.Handler

	KV        stores.KV
	Predictor assistant.Predictor
	Renderer  markup.Renderer
	Preset    *chat.Preset
}

type server struct {
	Addr string
	cfg  Config

	ar *chi.Mux     // app router
	hs *http.Server // http server

	authzr   staffio.Authorizer
	preset   *chat.Preset
	sessions *registry
}

func logger() *zap.SugaredLogger {
	return zap.S()
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

	if cfg.Renderer == nil {
		cfg.Renderer = markup.New(markup.WithSanitize(settings.Current.MarkdownSanitize))
	}
	if cfg.Preset == nil {
		var err error
		cfg.Preset, err = stores.LoadPreset()
		if err != nil {
			logger().Infow("load preset fail", "err", err)
			cfg.Preset = new(chat.Preset)
		}
	}

	s := &server{
		Addr: cfg.Addr, ar: ar,
		cfg:      cfg,
		preset:   cfg.Preset,
		sessions: newRegistry(cfg.KV, cfg.Predictor, cfg.Renderer, cfg.Preset),
	}

	s.authzr = staffio.NewAuth(staffio.WithCookie(
		settings.Current.CookieName,
		settings.Current.CookiePath,
		settings.Current.CookieDomain,
	), staffio.WithRefresh(), staffio.WithURI(staffio.LoginPath))

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
			fmt.Fprintf(os.Stderr, "DEBUG: %-6s %-24s --> %s (%d mw)\n", method, route, nameOfFunction(handler), len(middlewares))
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

	sweeper := time.NewTicker(sessionIdle / 3)
	defer sweeper.Stop()

	// Wait
	for {
		select {
		case runErr := <-runErrChan:
			if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
				logger().Infow("run http server failed",
					"err", runErr,
				)
				return runErr
			}
			return nil
		case <-sweeper.C:
			s.sessions.sweep(ctx, sessionIdle)
		case <-ctx.Done():
			logger().Info("http server has been stopped")
			return ctx.Err()
		}
	}
}

// Stop shuts the listener down and writes the pending transcripts
func (s *server) Stop(ctx context.Context) error {
	err := s.hs.Shutdown(ctx)
	if err != nil {
		logger().Infow("Server Shutdown", "err", err)
	}
	s.sessions.closeAll(ctx)
	return err
}
