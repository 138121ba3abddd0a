// Package app sequences an audioprobe run: the startup sanity log, the
// format test and the loopback test.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/internal/config"
	"github.com/drgolem/go-audioprobe/loopback"
	"github.com/drgolem/go-audioprobe/mixer"
	"github.com/drgolem/go-audioprobe/mixer/malgomixer"
	"github.com/drgolem/go-audioprobe/mixer/pamixer"
	"github.com/drgolem/go-audioprobe/probe"
	"github.com/drgolem/go-audioprobe/report"
)

// Opener initializes the audio platform named by backend.
type Opener func(backend string, log *slog.Logger) (mixer.Platform, error)

// OpenPlatform opens the portaudio or malgo backend.
func OpenPlatform(backend string, log *slog.Logger) (mixer.Platform, error) {
	switch backend {
	case config.BackendPortAudio:
		return pamixer.New(log)
	case config.BackendMalgo:
		return malgomixer.New(log)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// App holds everything a run needs. Zero Open, Out, Logger and Clock fall
// back to OpenPlatform, stdout, the slog default and the real clock.
type App struct {
	Config config.Config
	Open   Opener
	Out    io.Writer
	Logger *slog.Logger
	Clock  clockwork.Clock
}

// New returns an App for cfg with the default collaborators.
func New(cfg config.Config) *App {
	return &App{Config: cfg}
}

// Run executes the enabled phases. Failures inside a phase are reported and
// do not stop the run; the returned error is non-nil when the platform
// cannot be initialized or a phase cannot enumerate mixers.
func (a *App) Run(ctx context.Context) error {
	log := a.Logger
	if log == nil {
		log = slog.Default()
	}
	out := a.Out
	if out == nil {
		out = os.Stdout
	}
	open := a.Open
	if open == nil {
		open = OpenPlatform
	}

	a.sanityLog(ctx, log)

	if !a.Config.FormatTest && !a.Config.LoopbackTest {
		log.InfoContext(ctx, "no test enabled",
			"hint", "set "+config.EnvFormatTest+" or "+config.EnvLoopbackTest+", or pass --format-test / --loopback-test")
		return nil
	}

	p, err := open(a.Config.Backend, log.With("module", a.Config.Backend))
	if err != nil {
		return fmt.Errorf("open %s platform: %w", a.Config.Backend, err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("closing platform", "platform", p.Name(), "error", err)
		}
	}()
	log.DebugContext(ctx, "platform ready", "platform", p.Name())

	rep := report.New(out)
	var errs []error

	if a.Config.FormatTest {
		plog := log.With("module", "probe")
		formats := format.AllWithLogger(plog)
		plog.DebugContext(ctx, "format space", "count", len(formats))
		if err := probe.Run(ctx, p, formats, rep, plog); err != nil {
			errs = append(errs, fmt.Errorf("format test: %w", err))
		}
	}

	if a.Config.LoopbackTest && ctx.Err() == nil {
		r := loopback.New(rep, log.With("module", "loopback"))
		if a.Clock != nil {
			r.Clock = a.Clock
		}
		r.Duration = a.Config.Duration
		r.BlockFrames = a.Config.BlockFrames
		r.SliceLen = a.Config.SliceLen
		r.PollInterval = a.Config.PollInterval
		r.Format = a.Config.LoopbackPreset()
		if err := r.RunAll(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("loopback test: %w", err))
		}
	}

	return errors.Join(errs...)
}

// sanityLog logs the presets and their conversion compatibility. It gates
// nothing.
func (a *App) sanityLog(ctx context.Context, log *slog.Logger) {
	system, medium, telephony := format.System(), format.Medium(), format.Telephony()
	log.DebugContext(ctx, "startup",
		"backend", a.Config.Backend,
		"format_test", a.Config.FormatTest,
		"loopback_test", a.Config.LoopbackTest)
	log.DebugContext(ctx, "format presets",
		"system", system.String(),
		"medium", medium.String(),
		"telephony", telephony.String())
	log.DebugContext(ctx, "conversion supported",
		"system_from_medium", format.ConversionSupported(system, medium),
		"medium_from_telephony", format.ConversionSupported(medium, telephony))
}
