// Package loopback pipes audio captured on a mixer straight back out to a
// playback line on the same mixer, for a fixed wall-clock duration.
package loopback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
	"github.com/drgolem/go-audioprobe/report"
)

const (
	DefaultDuration    = 5 * time.Second
	DefaultBlockFrames = 4000
	DefaultSliceLen    = 30
)

// State is a step of a loopback run.
type State int

const (
	StateIdle State = iota
	StateOpened
	StateRunning
	StateTimeout
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpened:
		return "opened"
	case StateRunning:
		return "running"
	case StateTimeout:
		return "timeout"
	case StateError:
		return "error"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome summarises one run.
type Outcome struct {
	// State is the final state: StateIdle when the run was skipped because a
	// line could not be acquired, StateClosed otherwise.
	State State
	// Trace lists every state visited, in order.
	Trace  []State
	Writes int
	Err    error
}

// Runner runs loopback tests. Zero fields take their defaults.
type Runner struct {
	Clock       clockwork.Clock
	Duration    time.Duration
	BlockFrames int
	SliceLen    int
	// PollInterval is slept after a read that returned no data; zero spins.
	PollInterval time.Duration
	Format       format.Format
	Reporter     *report.Reporter
	Logger       *slog.Logger
}

// New returns a Runner with default settings.
func New(rep *report.Reporter, log *slog.Logger) *Runner {
	return &Runner{
		Clock:       clockwork.NewRealClock(),
		Duration:    DefaultDuration,
		BlockFrames: DefaultBlockFrames,
		SliceLen:    DefaultSliceLen,
		Format:      format.Telephony(),
		Reporter:    rep,
		Logger:      log,
	}
}

func (r Runner) withDefaults() Runner {
	if r.Clock == nil {
		r.Clock = clockwork.NewRealClock()
	}
	if r.Duration <= 0 {
		r.Duration = DefaultDuration
	}
	if r.BlockFrames <= 0 {
		r.BlockFrames = DefaultBlockFrames
	}
	if r.SliceLen <= 0 {
		r.SliceLen = DefaultSliceLen
	}
	if r.Format.IsZero() {
		r.Format = format.Telephony()
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.DiscardHandler)
	}
	if r.Reporter == nil {
		r.Reporter = report.New(os.Stdout)
	}
	return r
}

// RunAll runs the loopback test on every mixer of p.
func (r *Runner) RunAll(ctx context.Context, p mixer.Platform) error {
	cfg := r.withDefaults()
	cfg.Reporter.Chapter("LOOPBACK TEST")

	mixers, err := p.Mixers()
	if err != nil {
		return fmt.Errorf("enumerate mixers: %w", err)
	}

	for i, m := range mixers {
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg.Reporter.MixerInfo(i, m.Info())
		out := r.Run(ctx, m)
		cfg.Logger.DebugContext(ctx, "loopback finished",
			"mixer", m.Info().Name, "state", out.State.String(), "writes", out.Writes, "error", out.Err)
		cfg.Reporter.Blank()
	}
	return nil
}

// Run acquires a capture and a playback line on m and copies every
// non-silent captured block to playback until the duration elapses or an
// error occurs. A mixer lacking either line is skipped. Each acquired line is
// closed exactly once, also when the backend panics.
func (r *Runner) Run(ctx context.Context, m mixer.Mixer) (out Outcome) {
	cfg := r.withDefaults()
	log := cfg.Logger.With("mixer", m.Info().Name)
	rep := cfg.Reporter

	enter := func(s State) {
		out.State = s
		out.Trace = append(out.Trace, s)
		log.DebugContext(ctx, "loopback state", "state", s.String())
	}
	enter(StateIdle)
	defer func() {
		if out.State != StateIdle {
			enter(StateClosed)
		}
	}()
	// Backend panics end the run like any other line error. Lines acquired
	// so far are released before this runs.
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("line panicked: %v", p)
			rep.Printf("%v", err)
			out.Err = err
			enter(StateError)
		}
	}()

	rep.LineSummary(m.Info())

	capture, err := acquire(func() (mixer.CaptureLine, error) { return m.CaptureLine(cfg.Format) })
	if err != nil {
		rep.Printf("%v", err)
	} else {
		rep.Printf("dstDataLine OK %s line (%v)", capture.Direction(), capture.Format())
		defer release(ctx, capture, log)
	}

	playback, err := acquire(func() (mixer.PlaybackLine, error) { return m.PlaybackLine(cfg.Format) })
	if err != nil {
		rep.Printf("%v", err)
	} else {
		rep.Printf("srcDataLine OK %s line (%v)", playback.Direction(), playback.Format())
		defer release(ctx, playback, log)
	}

	if capture == nil || playback == nil {
		return out
	}

	fail := func(err error) Outcome {
		rep.Printf("%v", err)
		out.Err = err
		enter(StateError)
		return out
	}

	capture.AddListener(func(ev mixer.LineEvent) { rep.Printf("dst: %v", ev) })
	playback.AddListener(func(ev mixer.LineEvent) { rep.Printf("src: %v", ev) })

	if err := capture.Open(); err != nil {
		return fail(fmt.Errorf("open capture line: %w", err))
	}
	if err := playback.Open(); err != nil {
		return fail(fmt.Errorf("open playback line: %w", err))
	}
	enter(StateOpened)

	if err := capture.Start(); err != nil {
		return fail(fmt.Errorf("start capture line: %w", err))
	}
	if err := playback.Start(); err != nil {
		return fail(fmt.Errorf("start playback line: %w", err))
	}
	enter(StateRunning)

	if err := cfg.pump(ctx, capture, playback, &out); err != nil {
		return fail(err)
	}
	enter(StateTimeout)
	return out
}

func (r Runner) pump(ctx context.Context, capture mixer.CaptureLine, playback mixer.PlaybackLine, out *Outcome) error {
	block := make([]byte, r.Format.FrameSize*r.BlockFrames)
	start := r.Clock.Now()

	for r.Clock.Since(start) < r.Duration {
		if err := ctx.Err(); err != nil {
			return err
		}

		clear(block)
		n, err := capture.Read(block)
		if err != nil {
			return fmt.Errorf("read capture line: %w", err)
		}
		if n == 0 {
			r.wait(ctx)
			continue
		}
		if silent(block) {
			continue
		}

		if _, err := playback.Write(block); err != nil {
			return fmt.Errorf("write playback line: %w", err)
		}
		out.Writes++
		r.Reporter.Transfer(len(block), block[:min(r.SliceLen, len(block))])
	}
	return nil
}

func (r Runner) wait(ctx context.Context) {
	if r.PollInterval <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-r.Clock.After(r.PollInterval):
	}
}

func silent(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}

// acquire turns a backend panic into an error.
func acquire[L mixer.Line](get func() (L, error)) (l L, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero L
			l, err = zero, fmt.Errorf("line acquisition panicked: %v", r)
		}
	}()
	l, err = get()
	if err == nil && any(l) == nil {
		err = mixer.ErrLineUnavailable
	}
	if err != nil {
		var zero L
		return zero, err
	}
	return l, nil
}

func release(ctx context.Context, l mixer.Line, log *slog.Logger) {
	if err := l.Close(); err != nil {
		log.WarnContext(ctx, "close line", "line", l.Direction().String(), "error", err)
	}
}
