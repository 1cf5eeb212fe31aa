// Command livefeed shows live temperature readings of a telemetry source in
// the terminal and, if HTTP_ADDR is set, as a web dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	livefeed "github.com/dratasich/livefeed-go-client"
	"github.com/dratasich/livefeed-go-client/aggregate"
	"github.com/dratasich/livefeed-go-client/view"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-envconfig"
)

type config struct {
	Feed livefeed.Config

	LogLevel string        `env:"LOG_LEVEL,default=info"`
	HTTPAddr string        `env:"HTTP_ADDR"`           // dashboard listen address, disabled if empty
	Refresh  time.Duration `env:"REFRESH,default=3s"`  // dashboard reload interval
	Quiet    bool          `env:"QUIET,default=false"` // no terminal rendering
}

func loadConfig(ctx context.Context, lookuper envconfig.Lookuper) (config, error) {
	var cfg config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return cfg, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Feed.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	return nil
}

func sectionTitle(mode aggregate.Mode) string {
	if mode == aggregate.ModeHistory {
		return "Recent Temperature Readings"
	}
	return "Live Temperature Groups"
}

// terminal redraws the page on stdout
type terminal struct {
	mu  sync.Mutex
	out io.Writer
	tty bool
}

func (t *terminal) draw(page view.Page) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tty {
		// clear screen, cursor home
		fmt.Fprint(t.out, "\033[H\033[2J")
	}
	if err := view.WriteText(t.out, page); err != nil {
		log.Error().Msgf("Failed to draw: %s", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, envconfig.OsLookuper())
	if err != nil {
		log.Fatal().Msgf("Invalid configuration: %s", err)
	}
	if err := setupLogging(cfg.LogLevel); err != nil {
		log.Fatal().Msgf("Invalid configuration: %s", err)
	}

	opts := view.Options{
		Title:    sectionTitle(cfg.Feed.Mode),
		Endpoint: cfg.Feed.ServerURL,
	}
	term := &terminal{out: os.Stdout, tty: isatty.IsTerminal(os.Stdout.Fd())}
	listener := func(s livefeed.Snapshot) {
		if cfg.Quiet {
			return
		}
		term.draw(view.Render(s.State == livefeed.Connected, s.Readings, opts))
	}

	client, err := livefeed.NewClientFromConfig(cfg.Feed, livefeed.WithListener(listener))
	if err != nil {
		log.Fatal().Msgf("Failed to create client: %s", err)
	}
	listener(client.Snapshot())

	var srv *http.Server
	if cfg.HTTPAddr != "" {
		current := func() view.Page {
			s := client.Snapshot()
			return view.Render(s.State == livefeed.Connected, s.Readings, opts)
		}
		srv = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           view.Handler(current, cfg.Refresh),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Msgf("Serving dashboard on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Msgf("Dashboard server failed: %s", err)
				stop()
			}
		}()
	}

	log.Info().Msgf("Connecting to %s via %s", cfg.Feed.ServerURL, cfg.Feed.Transport)
	if err := client.Run(ctx); err != nil {
		log.Error().Msgf("Live feed failed: %s", err)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Msgf("Failed to shut down dashboard: %s", err)
		}
	}
}
