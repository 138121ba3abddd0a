// Package probe checks which formats each mixer can open for capture and
// playback.
package probe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
	"github.com/drgolem/go-audioprobe/report"
)

// Result is the outcome of probing one format on one mixer.
type Result struct {
	Mixer      mixer.Info
	Format     format.Format
	CaptureOK  bool
	PlaybackOK bool
}

// Reported reports whether the result is worth printing.
func (r Result) Reported() bool {
	return r.CaptureOK || r.PlaybackOK
}

// FormatSupport tries to open a capture line and then a playback line for f
// on m. Failures, including panics raised by the backend, only mark the
// direction unsupported. Every opened line is closed before returning.
func FormatSupport(ctx context.Context, m mixer.Mixer, f format.Format, log *slog.Logger) Result {
	res := Result{Format: f}
	res.Mixer = safeInfo(m)
	res.CaptureOK = direction(ctx, m, mixer.Capture, f, log)
	res.PlaybackOK = direction(ctx, m, mixer.Playback, f, log)
	return res
}

// Run probes every format on every mixer of p, mixer outer and format inner,
// and prints the results with at least one direction supported.
func Run(ctx context.Context, p mixer.Platform, formats []format.Format, rep *report.Reporter, log *slog.Logger) error {
	rep.Chapter("FORMAT TEST")

	mixers, err := p.Mixers()
	if err != nil {
		return fmt.Errorf("enumerate mixers: %w", err)
	}

	for i, m := range mixers {
		info := safeInfo(m)
		rep.MixerInfo(i, info)
		mlog := log.With("mixer", info.Name)

		for _, f := range formats {
			if err := ctx.Err(); err != nil {
				return err
			}
			mlog.DebugContext(ctx, "check format", "format", f.String())

			res := FormatSupport(ctx, m, f, mlog)
			if !res.Reported() {
				mlog.DebugContext(ctx, "format unsupported", "format", f.String())
				continue
			}
			rep.Probe(res.CaptureOK, res.PlaybackOK, f)
		}
		rep.Blank()
	}
	return nil
}

func direction(ctx context.Context, m mixer.Mixer, dir mixer.Direction, f format.Format, log *slog.Logger) (ok bool) {
	log = log.With("line", dir.String())

	var line mixer.Line
	defer func() {
		if r := recover(); r != nil {
			log.DebugContext(ctx, "FAIL line panic", "panic", fmt.Sprint(r))
			ok = false
		}
		if line != nil {
			closeLine(ctx, line, log)
		}
	}()

	l, err := acquire(m, dir, f)
	if err != nil {
		log.DebugContext(ctx, "FAIL acquire", "error", err)
		return false
	}
	line = l
	log.DebugContext(ctx, "OK acquire")

	l.AddListener(func(ev mixer.LineEvent) {
		log.DebugContext(ctx, "line event", "event", ev.String())
	})
	if err := l.Open(); err != nil {
		log.DebugContext(ctx, "FAIL open", "error", err)
		return false
	}
	log.DebugContext(ctx, "OK open")
	return true
}

func acquire(m mixer.Mixer, dir mixer.Direction, f format.Format) (mixer.Line, error) {
	if dir == mixer.Capture {
		l, err := m.CaptureLine(f)
		if err != nil {
			return nil, err
		}
		if l == nil {
			return nil, mixer.Unavailable(dir, m.Info(), f, nil)
		}
		return l, nil
	}

	l, err := m.PlaybackLine(f)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, mixer.Unavailable(dir, m.Info(), f, nil)
	}
	return l, nil
}

func closeLine(ctx context.Context, l mixer.Line, log *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.DebugContext(ctx, "close panic", "panic", fmt.Sprint(r))
		}
	}()
	if err := l.Close(); err != nil {
		log.DebugContext(ctx, "close failed", "error", err)
	}
}

func safeInfo(m mixer.Mixer) (info mixer.Info) {
	defer func() {
		if recover() != nil {
			info = mixer.Info{Name: "unknown"}
		}
	}()
	return m.Info()
}
