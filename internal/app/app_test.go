package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/internal/config"
	"github.com/drgolem/go-audioprobe/mixer"
	"github.com/drgolem/go-audioprobe/mixer/mixertest"
)

func newApp(cfg config.Config, p *mixertest.Platform, clock clockwork.Clock, out *bytes.Buffer, logs *bytes.Buffer) (*App, *int) {
	opened := 0
	return &App{
		Config: cfg,
		Open: func(backend string, _ *slog.Logger) (mixer.Platform, error) {
			opened++
			return p, nil
		},
		Out:    out,
		Logger: slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
		Clock:  clock,
	}, &opened
}

func TestRunPhases(t *testing.T) {
	tests := []struct {
		name          string
		formatTest    bool
		loopbackTest  bool
		wantOpen      int
		wantChapters  []string
		avoidChapters []string
	}{
		{"none", false, false, 0, nil, []string{"FORMAT TEST", "LOOPBACK TEST"}},
		{"format only", true, false, 1, []string{"FORMAT TEST"}, []string{"LOOPBACK TEST"}},
		{"loopback only", false, true, 1, []string{"LOOPBACK TEST"}, []string{"FORMAT TEST"}},
		{"both", true, true, 1, []string{"FORMAT TEST", "LOOPBACK TEST"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := clockwork.NewFakeClock()
			m := mixertest.NewMixer("hw:0")
			m.Clock = clock
			m.Step = 100 * time.Millisecond
			m.Source = mixertest.Silence()
			p := mixertest.NewPlatform(m)

			cfg := config.Default()
			cfg.FormatTest = tt.formatTest
			cfg.LoopbackTest = tt.loopbackTest
			cfg.Duration = time.Second

			var out, logs bytes.Buffer
			a, opened := newApp(cfg, p, clock, &out, &logs)
			if err := a.Run(context.Background()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if *opened != tt.wantOpen {
				t.Errorf("platform opened %d times, want %d", *opened, tt.wantOpen)
			}
			if tt.wantOpen > 0 && !p.Closed {
				t.Error("platform should be closed after the run")
			}
			for _, c := range tt.wantChapters {
				if !strings.Contains(out.String(), c) {
					t.Errorf("output missing chapter %q", c)
				}
			}
			for _, c := range tt.avoidChapters {
				if strings.Contains(out.String(), c) {
					t.Errorf("output has unexpected chapter %q", c)
				}
			}
			if !strings.Contains(logs.String(), "conversion supported") {
				t.Error("startup sanity log missing")
			}
		})
	}
}

func TestRunFormatTestPrintsEveryFormat(t *testing.T) {
	p := mixertest.NewPlatform(mixertest.NewMixer("hw:0"))
	cfg := config.Default()
	cfg.FormatTest = true

	var out, logs bytes.Buffer
	a, _ := newApp(cfg, p, clockwork.NewFakeClock(), &out, &logs)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got, want := strings.Count(out.String(), "dst OK src OK format:"), len(format.All()); got != want {
		t.Errorf("printed %d results, want %d", got, want)
	}
}

func TestRunLoopbackUsesConfig(t *testing.T) {
	clock := clockwork.NewFakeClock()
	start := clock.Now()
	m := mixertest.NewMixer("hw:0")
	m.Clock = clock
	m.Step = 100 * time.Millisecond
	m.Source = mixertest.Silence()

	cfg := config.Default()
	cfg.LoopbackTest = true
	cfg.Duration = 2 * time.Second
	cfg.LoopbackFormat = format.PresetSystem

	var out, logs bytes.Buffer
	a, _ := newApp(cfg, mixertest.NewPlatform(m), clock, &out, &logs)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if elapsed := clock.Since(start); elapsed != 2*time.Second {
		t.Errorf("loopback ran for %v, want 2s", elapsed)
	}
	if len(m.Captures) != 1 || m.Captures[0].Format() != format.System() {
		t.Fatalf("capture line should use the system preset, got %d lines", len(m.Captures))
	}
	if m.Captures[0].Reads != 20 {
		t.Errorf("reads = %d, want 20", m.Captures[0].Reads)
	}
}

func TestRunPlatformFailures(t *testing.T) {
	cfg := config.Default()
	cfg.FormatTest = true
	cfg.LoopbackTest = true

	t.Run("open", func(t *testing.T) {
		openErr := errors.New("no audio subsystem")
		a := &App{
			Config: cfg,
			Open: func(string, *slog.Logger) (mixer.Platform, error) {
				return nil, openErr
			},
			Out:    &bytes.Buffer{},
			Logger: slog.New(slog.DiscardHandler),
		}
		if err := a.Run(context.Background()); !errors.Is(err, openErr) {
			t.Errorf("Run error = %v, want %v", err, openErr)
		}
	})

	t.Run("enumerate", func(t *testing.T) {
		enumErr := errors.New("enumeration failed")
		p := mixertest.NewPlatform()
		p.Err = enumErr

		var out, logs bytes.Buffer
		a, _ := newApp(cfg, p, clockwork.NewFakeClock(), &out, &logs)
		err := a.Run(context.Background())
		if !errors.Is(err, enumErr) {
			t.Fatalf("Run error = %v, want %v", err, enumErr)
		}
		if !strings.Contains(err.Error(), "format test") || !strings.Contains(err.Error(), "loopback test") {
			t.Errorf("both phases should report the failure: %v", err)
		}
		if !p.Closed {
			t.Error("platform should be closed")
		}
	})
}

func TestOpenPlatformUnknownBackend(t *testing.T) {
	if _, err := OpenPlatform("alsa", slog.New(slog.DiscardHandler)); err == nil {
		t.Error("unknown backend should fail")
	}
}
