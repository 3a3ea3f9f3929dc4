// Command reelplay is a demo host for the playback engine: it opens one
// local media file or network URL and drives it end to end through
// internal/session.Engine, logging lifecycle and position events instead
// of actually presenting frames (reelplay has no GUI surface; a real host
// would supply renderers via Engine.SetRenderer). Grounded on
// cmd/prism/main.go's app struct, envOr helper, slog.SetDefault, signal
// handling, and errgroup.WithContext shutdown wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ashgrove/reelengine/internal/certs"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/session"
	"github.com/ashgrove/reelengine/internal/telemetry"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	url := flag.String("url", envOr("REELPLAY_URL", ""), "media file path or network URL to open")
	network := flag.Bool("network", false, "treat the URL as a network stream (disables seeking)")
	speed := flag.Float64("speed", 1.0, "initial playback speed")
	telemetryAddr := flag.String("telemetry-addr", envOr("REELPLAY_TELEMETRY_ADDR", ""), "if set, serve session events as HTTP/3 NDJSON on this address (e.g. :8443)")
	flag.Parse()

	if *url == "" {
		fmt.Fprintln(os.Stderr, "usage: reelplay -url <path-or-url> [-network] [-speed 1.0]")
		os.Exit(2)
	}

	slog.Info("reelplay starting", "version", version, "url", *url, "network", *network)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	a := newApp(*speed)

	g, ctx := errgroup.WithContext(ctx)

	if *telemetryAddr != "" {
		hub := telemetry.NewHub()
		a.engine.SetHostCallbacks(hub.Bind(a.hostCallbacks()))

		cert, err := certs.Generate(0)
		if err != nil {
			slog.Error("telemetry cert generation failed", "error", err)
			os.Exit(1)
		}
		slog.Info("telemetry server enabled", "addr", *telemetryAddr, "fingerprint", cert.FingerprintBase64())

		srv := telemetry.NewServer(*telemetryAddr, cert, hub, slog.Default())
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	g.Go(func() error {
		return a.run(ctx, *url, *network)
	})
	g.Go(func() error {
		<-ctx.Done()
		a.engine.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("reelplay error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	engine       *session.Engine
	initialSpeed float64
}

func newApp(initialSpeed float64) *app {
	engine := session.New(slog.Default(), newDemuxer, newDecoder, newResampler, newFilterGraph)
	engine.SetRenderer(media.Video, &logRenderer{typ: media.Video})
	engine.SetRenderer(media.Audio, &logRenderer{typ: media.Audio})
	engine.SetRenderer(media.Subtitle, &logRenderer{typ: media.Subtitle})

	a := &app{engine: engine, initialSpeed: initialSpeed}
	engine.SetHostCallbacks(a.hostCallbacks())
	return a
}

// hostCallbacks are reelplay's own logging hooks. The -telemetry-addr flag
// wraps these with telemetry.Hub.Bind rather than replacing them, so the
// demo host keeps logging locally even while streaming events out.
func (a *app) hostCallbacks() session.HostCallbacks {
	return session.HostCallbacks{
		OnMediaEnded: func() { slog.Info("media ended") },
		OnMediaFailed: func(err error) {
			slog.Error("media failed", "error", err)
		},
		OnPositionChanged: func(t media.Timestamp) {
			slog.Debug("position", "wall", t.Duration())
		},
		OnPacketQueueChanged: func(t media.Type, count, length int) {
			slog.Debug("packet queue", "type", t, "count", count, "bytes", length)
		},
	}
}

func (a *app) run(ctx context.Context, url string, network bool) error {
	if err := a.engine.Open(ctx, url, network, session.MediaOptions{}); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if a.initialSpeed != 1.0 {
		if err := a.engine.ChangeSpeed(a.initialSpeed); err != nil {
			slog.Warn("change-speed failed", "error", err)
		}
	}

	<-ctx.Done()
	return nil
}

// logRenderer is reelplay's stand-in presentation surface: it logs block
// arrivals instead of drawing them, since the demo host has no GUI.
type logRenderer struct {
	typ   media.Type
	ready bool
}

func (r *logRenderer) Render(b *media.Block, wall media.Timestamp) {
	slog.Debug("render", "type", r.typ, "start", b.Start.Duration(), "wall", wall.Duration())
}

func (r *logRenderer) Update(wall media.Timestamp) {}

func (r *logRenderer) Seek() {
	slog.Debug("renderer seek invalidated", "type", r.typ)
}

func (r *logRenderer) WaitForReady(ctx context.Context) error {
	r.ready = true
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
