// Command field-sim runs a stand-in field server for audience displays. It
// serves the display websocket and sponsor slides, accepts ad-hoc events on
// POST /api/events and optionally plays a YAML match script.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/domain/model"
	"github.com/okian/fielddisplay/internal/fieldsim"
	"github.com/okian/fielddisplay/internal/sponsor"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = ":8080"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr     = flag.String("addr", defaultAddr, "Listen address")
		path     = flag.String("path", "", "Display websocket path (default /api/displays/audience/websocket)")
		script   = flag.String("script", "", "YAML match script to play once displays connect")
		slides   = flag.String("slides", "", "JSON file with sponsor slides")
		loop     = flag.Bool("loop", false, "Repeat the script until interrupted")
		displays = flag.Int("displays", 1, "Displays to wait for before playing the script")
		verbose  = flag.Bool("verbose", false, "Enable debug logging")
		help     = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	l := logger.Named("fieldsim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, l, options{
		addr:     *addr,
		path:     *path,
		script:   *script,
		slides:   *slides,
		loop:     *loop,
		displays: *displays,
	}); err != nil && !errors.Is(err, context.Canceled) {
		l.Error(ctx, "field-sim failed", logger.Error(err))
		os.Exit(1)
	}
}

type options struct {
	addr     string
	path     string
	script   string
	slides   string
	loop     bool
	displays int
}

func run(ctx context.Context, l logger.Logger, o options) error {
	var sc *fieldsim.Script
	if o.script != "" {
		var err error
		if sc, err = fieldsim.LoadScript(o.script); err != nil {
			return err
		}
		sc.Loop = sc.Loop || o.loop
		if sc.Loop && sc.Duration() == 0 {
			return fmt.Errorf("%w: -loop needs a script with delays", fieldsim.ErrInvalidScript)
		}
	}

	slideList, err := loadSlides(o.slides)
	if err != nil {
		return err
	}

	greeting, err := model.NewEnvelope("audience_display_mode", "blank")
	if err != nil {
		return err
	}

	srv := fieldsim.New(
		fieldsim.WithChannelPath(o.path),
		fieldsim.WithSlides(slideList),
		fieldsim.WithGreeting(greeting),
		fieldsim.WithLogger(l),
	)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              o.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errs := make(chan error, 2)
	go func() {
		l.Info(ctx, "field server listening", logger.String("addr", o.addr), logger.Int("slides", len(slideList)))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	if sc != nil {
		go func() {
			errs <- play(ctx, l, srv, sc, o.displays)
		}()
	}

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		l.Info(context.Background(), "field server stopping")
		return ctx.Err()
	}
}

// play waits for the displays and runs the script once or forever.
func play(ctx context.Context, l logger.Logger, srv *fieldsim.Server, sc *fieldsim.Script, displays int) error {
	l.Info(ctx, "waiting for displays", logger.Int("displays", displays))
	if err := srv.WaitForDisplays(ctx, displays); err != nil {
		return err
	}
	l.Info(ctx, "playing script",
		logger.String("script", sc.Name),
		logger.Int("steps", len(sc.Steps)),
		logger.Duration("pass", sc.Duration()),
		logger.Bool("loop", sc.Loop),
	)
	if err := srv.Play(ctx, clockwork.NewRealClock(), sc); err != nil {
		return err
	}
	l.Info(ctx, "script finished", logger.String("script", sc.Name))
	// Keep serving slides and ad-hoc events until interrupted.
	<-ctx.Done()
	return ctx.Err()
}

// loadSlides reads a JSON array of slides; an empty path means none.
func loadSlides(path string) ([]sponsor.Slide, error) {
	if path == "" {
		return []sponsor.Slide{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slides: %w", err)
	}
	var out []sponsor.Slide
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode slides %s: %w", path, err)
	}
	return out, nil
}

func showHelp() {
	os.Stdout.WriteString(`Field Server Simulator
======================

Serves the audience display websocket and sponsor slides, and pushes
events to connected displays.

Usage:
  go run ./cmd/field-sim [options]

Options:
  -addr string
        Listen address (default ":8080")
  -path string
        Display websocket path (default "/api/displays/audience/websocket")
  -script string
        YAML match script to play once displays connect
  -slides string
        JSON file with sponsor slides
  -loop
        Repeat the script until interrupted
  -displays int
        Displays to wait for before playing the script (default 1)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Play one match cycle to the first display that connects
  go run ./cmd/field-sim -script internal/fieldsim/testdata/match_cycle.yaml

  # Push a single event by hand
  curl -X POST localhost:8080/api/events -d '{"type":"audience_display_mode","data":"logo"}'
`)
}
