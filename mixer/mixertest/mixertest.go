// Package mixertest provides a simulated audio platform for tests.
package mixertest

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
)

// Source fills p with captured audio and returns the byte count.
type Source func(p []byte) (int, error)

// Platform is a fixed list of simulated mixers.
type Platform struct {
	MixerList []*Mixer
	// Err is returned by Mixers when set.
	Err    error
	Closed bool
}

// NewPlatform returns a platform exposing ms.
func NewPlatform(ms ...*Mixer) *Platform {
	return &Platform{MixerList: ms}
}

func (p *Platform) Name() string { return "mixertest" }

func (p *Platform) Mixers() ([]mixer.Mixer, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]mixer.Mixer, len(p.MixerList))
	for i, m := range p.MixerList {
		out[i] = m
	}
	return out, nil
}

func (p *Platform) Close() error {
	p.Closed = true
	return nil
}

// Mixer is a simulated mixer. The zero value (plus a name) accepts every
// format in both directions and captures nothing.
type Mixer struct {
	MixerInfo mixer.Info

	// CaptureSupported and PlaybackSupported filter acquisitions; nil accepts all.
	CaptureSupported  func(format.Format) bool
	PlaybackSupported func(format.Format) bool

	// CaptureErr and PlaybackErr fail every acquisition in that direction.
	CaptureErr  error
	PlaybackErr error

	// CaptureOpenErr and PlaybackOpenErr fail Open on lines handed out.
	CaptureOpenErr  error
	PlaybackOpenErr error

	// PanicOnAcquire makes acquisition panic, for backends that misbehave.
	PanicOnAcquire bool

	// Source feeds capture lines.
	Source Source
	// Clock, when set, is advanced by Step on every capture Read.
	Clock clockwork.FakeClock
	Step  time.Duration

	Captures  []*CaptureLine
	Playbacks []*PlaybackLine
}

// NewMixer returns a mixer named name that accepts every format.
func NewMixer(name string) *Mixer {
	return &Mixer{MixerInfo: mixer.Info{
		Name:                name,
		Vendor:              "mixertest",
		Description:         "simulated mixer",
		Version:             "1.0",
		MaxCaptureChannels:  2,
		MaxPlaybackChannels: 2,
	}}
}

func (m *Mixer) Info() mixer.Info { return m.MixerInfo }

func (m *Mixer) CaptureLine(f format.Format) (mixer.CaptureLine, error) {
	if m.PanicOnAcquire {
		panic("mixertest: capture acquisition")
	}
	if m.CaptureErr != nil {
		return nil, mixer.Unavailable(mixer.Capture, m.MixerInfo, f, m.CaptureErr)
	}
	if m.CaptureSupported != nil && !m.CaptureSupported(f) {
		return nil, mixer.Unavailable(mixer.Capture, m.MixerInfo, f, nil)
	}

	l := &CaptureLine{
		LineState: mixer.NewLineState(mixer.Capture, f),
		OpenErr:   m.CaptureOpenErr,
		Source:    m.Source,
		Clock:     m.Clock,
		Step:      m.Step,
	}
	m.Captures = append(m.Captures, l)
	return l, nil
}

func (m *Mixer) PlaybackLine(f format.Format) (mixer.PlaybackLine, error) {
	if m.PanicOnAcquire {
		panic("mixertest: playback acquisition")
	}
	if m.PlaybackErr != nil {
		return nil, mixer.Unavailable(mixer.Playback, m.MixerInfo, f, m.PlaybackErr)
	}
	if m.PlaybackSupported != nil && !m.PlaybackSupported(f) {
		return nil, mixer.Unavailable(mixer.Playback, m.MixerInfo, f, nil)
	}

	l := &PlaybackLine{
		LineState: mixer.NewLineState(mixer.Playback, f),
		OpenErr:   m.PlaybackOpenErr,
	}
	m.Playbacks = append(m.Playbacks, l)
	return l, nil
}

// CaptureLine is a simulated capture line.
type CaptureLine struct {
	mixer.LineState
	OpenErr error
	Source  Source
	Clock   clockwork.FakeClock
	Step    time.Duration

	Reads      int
	CloseCalls int
}

func (l *CaptureLine) Open() error {
	if l.OpenErr != nil {
		return l.OpenErr
	}
	if l.IsOpen() {
		return errors.New("mixertest: line already open")
	}
	l.MarkOpened()
	return nil
}

func (l *CaptureLine) Start() error {
	if !l.IsOpen() {
		return mixer.ErrLineClosed
	}
	l.MarkStarted()
	return nil
}

func (l *CaptureLine) Stop() error {
	l.MarkStopped()
	return nil
}

func (l *CaptureLine) Close() error {
	l.CloseCalls++
	l.MarkClosed()
	return nil
}

func (l *CaptureLine) Read(p []byte) (int, error) {
	if !l.IsOpen() {
		return 0, mixer.ErrLineClosed
	}
	l.Reads++
	if l.Clock != nil {
		l.Clock.Advance(l.Step)
	}
	if l.Source == nil {
		return 0, nil
	}
	n, err := l.Source(p)
	l.Advance(n / l.Format().FrameSize)
	return n, err
}

// PlaybackLine is a simulated playback line recording every write.
type PlaybackLine struct {
	mixer.LineState
	OpenErr  error
	WriteErr error

	Writes     [][]byte
	CloseCalls int
}

func (l *PlaybackLine) Open() error {
	if l.OpenErr != nil {
		return l.OpenErr
	}
	if l.IsOpen() {
		return errors.New("mixertest: line already open")
	}
	l.MarkOpened()
	return nil
}

func (l *PlaybackLine) Start() error {
	if !l.IsOpen() {
		return mixer.ErrLineClosed
	}
	l.MarkStarted()
	return nil
}

func (l *PlaybackLine) Stop() error {
	l.MarkStopped()
	return nil
}

func (l *PlaybackLine) Close() error {
	l.CloseCalls++
	l.MarkClosed()
	return nil
}

func (l *PlaybackLine) Write(p []byte) (int, error) {
	if !l.IsOpen() {
		return 0, mixer.ErrLineClosed
	}
	if l.WriteErr != nil {
		return 0, l.WriteErr
	}
	l.Writes = append(l.Writes, append([]byte(nil), p...))
	l.Advance(len(p) / l.Format().FrameSize)
	return len(p), nil
}

// Silence fills every read with zeros.
func Silence() Source {
	return func(p []byte) (int, error) {
		clear(p)
		return len(p), nil
	}
}

// Blocks returns each block once, in order, then reports no data.
func Blocks(blocks ...[]byte) Source {
	return func(p []byte) (int, error) {
		if len(blocks) == 0 {
			return 0, nil
		}
		n := copy(p, blocks[0])
		blocks = blocks[1:]
		return n, nil
	}
}

// Failing returns err on every read.
func Failing(err error) Source {
	return func([]byte) (int, error) {
		return 0, err
	}
}
