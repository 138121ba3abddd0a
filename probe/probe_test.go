package probe

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer/mixertest"
	"github.com/drgolem/go-audioprobe/report"
)

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func pcmOnly(f format.Format) bool { return f.Encoding.IsPCM() }

func TestFormatSupport(t *testing.T) {
	tests := []struct {
		name              string
		setup             func(m *mixertest.Mixer)
		capture, playback bool
		openedCaptures    int
		openedPlaybacks   int
	}{
		{
			name:            "both directions",
			setup:           func(m *mixertest.Mixer) {},
			capture:         true,
			playback:        true,
			openedCaptures:  1,
			openedPlaybacks: 1,
		},
		{
			name: "capture unavailable",
			setup: func(m *mixertest.Mixer) {
				m.CaptureErr = errors.New("no input")
			},
			playback:        true,
			openedPlaybacks: 1,
		},
		{
			name: "playback open fails",
			setup: func(m *mixertest.Mixer) {
				m.PlaybackOpenErr = errors.New("device busy")
			},
			capture:         true,
			openedCaptures:  1,
			openedPlaybacks: 1,
		},
		{
			name: "backend panics",
			setup: func(m *mixertest.Mixer) {
				m.PanicOnAcquire = true
			},
		},
		{
			name: "format filtered",
			setup: func(m *mixertest.Mixer) {
				m.CaptureSupported = pcmOnly
				m.PlaybackSupported = pcmOnly
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mixertest.NewMixer("hw:0")
			tt.setup(m)

			res := FormatSupport(context.Background(), m, format.Telephony(), slog.New(slog.DiscardHandler))
			if res.CaptureOK != tt.capture || res.PlaybackOK != tt.playback {
				t.Errorf("result = capture %v playback %v, want %v %v",
					res.CaptureOK, res.PlaybackOK, tt.capture, tt.playback)
			}
			if res.Mixer.Name != "hw:0" || res.Format != format.Telephony() {
				t.Errorf("result identity = %+v", res)
			}
			if len(m.Captures) != tt.openedCaptures || len(m.Playbacks) != tt.openedPlaybacks {
				t.Fatalf("acquired %d capture and %d playback lines", len(m.Captures), len(m.Playbacks))
			}
			for _, l := range m.Captures {
				if l.IsOpen() || l.CloseCalls != 1 {
					t.Errorf("capture line open=%v closes=%d", l.IsOpen(), l.CloseCalls)
				}
			}
			for _, l := range m.Playbacks {
				if l.IsOpen() || l.CloseCalls != 1 {
					t.Errorf("playback line open=%v closes=%d", l.IsOpen(), l.CloseCalls)
				}
			}
		})
	}
}

func TestFormatSupportLogsLineEvents(t *testing.T) {
	var buf bytes.Buffer
	FormatSupport(context.Background(), mixertest.NewMixer("hw:0"), format.System(), debugLogger(&buf))

	out := buf.String()
	for _, want := range []string{"OK acquire", "OK open", "Open event from capture line", "Close event from playback line"} {
		if !strings.Contains(out, want) {
			t.Errorf("log does not contain %q:\n%s", want, out)
		}
	}
}

func TestRun(t *testing.T) {
	pcm := mixertest.NewMixer("pcm")
	pcm.CaptureSupported = pcmOnly
	pcm.PlaybackSupported = pcmOnly

	dead := mixertest.NewMixer("dead")
	dead.CaptureErr = errors.New("no input")
	dead.PlaybackErr = errors.New("no output")

	formats := []format.Format{format.System(), format.Telephony()}

	var out, logs bytes.Buffer
	err := Run(context.Background(), mixertest.NewPlatform(pcm, dead), formats, report.New(&out), debugLogger(&logs))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	text := out.String()
	if got := strings.Count(text, "format: "); got != 1 {
		t.Errorf("printed %d results, want 1:\n%s", got, text)
	}
	if !strings.Contains(text, "dst OK src OK format: "+format.System().String()) {
		t.Errorf("missing system format result:\n%s", text)
	}
	if strings.Index(text, "name: <pcm>") > strings.Index(text, "name: <dead>") {
		t.Error("mixers reported out of order")
	}

	// Three suppressed pairs: telephony on pcm, both formats on dead.
	if got := strings.Count(logs.String(), "format unsupported"); got != 3 {
		t.Errorf("logged %d suppressed results, want 3", got)
	}
	if got := strings.Count(logs.String(), "check format"); got != 4 {
		t.Errorf("logged %d format checks, want 4", got)
	}
}

func TestRunMixerEnumerationFails(t *testing.T) {
	p := mixertest.NewPlatform()
	p.Err = errors.New("no audio subsystem")

	var out bytes.Buffer
	err := Run(context.Background(), p, format.All(), report.New(&out), slog.New(slog.DiscardHandler))
	if !errors.Is(err, p.Err) {
		t.Errorf("Run error = %v, want %v", err, p.Err)
	}
}

func TestRunCancelled(t *testing.T) {
	m := mixertest.NewMixer("hw:0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := Run(ctx, mixertest.NewPlatform(m), format.All(), report.New(&out), slog.New(slog.DiscardHandler))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if len(m.Captures) != 0 {
		t.Errorf("probed %d formats after cancellation", len(m.Captures))
	}
}
