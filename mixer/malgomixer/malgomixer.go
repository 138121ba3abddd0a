// Package malgomixer implements mixer.Platform on top of miniaudio.
//
// The platform exposes a "default" mixer bound to the system default capture
// and playback devices, followed by one mixer per enumerated device. Device
// callbacks run on miniaudio's thread and only move bytes through a ring
// buffer; line methods run on the caller's goroutine.
package malgomixer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
)

const (
	// bufferDuration is the amount of audio a line buffers.
	bufferDuration = 2 * time.Second
	// writePoll is how long Write waits for the device to drain room.
	writePoll = 5 * time.Millisecond
)

var errAlreadyOpen = errors.New("line already open")

// Platform is the miniaudio audio subsystem.
type Platform struct {
	ctx *malgo.AllocatedContext
	log *slog.Logger
}

// New initializes a miniaudio context. Close must be called when done.
func New(log *slog.Logger) (*Platform, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug("miniaudio", "message", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, fmt.Errorf("init miniaudio context: %w", err)
	}
	return &Platform{ctx: ctx, log: log}, nil
}

func (p *Platform) Name() string { return "miniaudio" }

func (p *Platform) Close() error {
	if p.ctx == nil {
		return nil
	}
	err := p.ctx.Uninit()
	p.ctx.Free()
	p.ctx = nil
	return err
}

// device is one enumerated miniaudio device.
type device struct {
	name     string
	id       malgo.DeviceID
	def      bool
	channels int
}

func (p *Platform) devices(kind malgo.DeviceType) ([]device, error) {
	infos, err := p.ctx.Devices(kind)
	if err != nil {
		return nil, err
	}

	res := make([]device, 0, len(infos))
	seen := make(map[malgo.DeviceID]struct{}, len(infos))
	for _, info := range infos {
		full, err := p.ctx.DeviceInfo(kind, info.ID, malgo.Shared)
		if err != nil {
			p.log.Warn("unable to get device info", "device", info.Name(), "error", err)
			full = info
		}
		if _, ok := seen[full.ID]; ok {
			continue
		}
		seen[full.ID] = struct{}{}

		d := device{name: full.Name(), id: full.ID, def: full.IsDefault == 1}
		for _, df := range full.Formats {
			d.channels = max(d.channels, int(df.Channels))
		}
		res = append(res, d)
	}
	return res, nil
}

func (p *Platform) Mixers() ([]mixer.Mixer, error) {
	if p.ctx == nil {
		return nil, errors.New("miniaudio context closed")
	}

	captures, err := p.devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	playbacks, err := p.devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("list playback devices: %w", err)
	}

	def := &Mixer{p: p, capture: &device{name: "default"}, playback: &device{name: "default"}}
	for _, d := range captures {
		if d.def {
			def.capture = &d
		}
	}
	for _, d := range playbacks {
		if d.def {
			def.playback = &d
		}
	}
	def.info = mixer.Info{
		Name:                "default",
		Vendor:              p.Name(),
		Description:         fmt.Sprintf("default devices (capture %q, playback %q)", def.capture.name, def.playback.name),
		Version:             "n/a",
		MaxCaptureChannels:  def.capture.channels,
		MaxPlaybackChannels: def.playback.channels,
	}

	mixers := []mixer.Mixer{def}
	for _, d := range captures {
		mixers = append(mixers, &Mixer{p: p, capture: &d, info: mixer.Info{
			Name:               d.name,
			Vendor:             p.Name(),
			Description:        "capture device " + d.id.String(),
			Version:            "n/a",
			MaxCaptureChannels: d.channels,
		}})
	}
	for _, d := range playbacks {
		mixers = append(mixers, &Mixer{p: p, playback: &d, info: mixer.Info{
			Name:                d.name,
			Vendor:              p.Name(),
			Description:         "playback device " + d.id.String(),
			Version:             "n/a",
			MaxPlaybackChannels: d.channels,
		}})
	}
	return mixers, nil
}

// Mixer is a miniaudio device, or the pair of default devices.
type Mixer struct {
	p        *Platform
	info     mixer.Info
	capture  *device
	playback *device
}

func (m *Mixer) Info() mixer.Info { return m.info }

func (m *Mixer) CaptureLine(f format.Format) (mixer.CaptureLine, error) {
	l, err := m.line(mixer.Capture, m.capture, f)
	if err != nil {
		return nil, err
	}
	return &captureLine{line: l}, nil
}

func (m *Mixer) PlaybackLine(f format.Format) (mixer.PlaybackLine, error) {
	l, err := m.line(mixer.Playback, m.playback, f)
	if err != nil {
		return nil, err
	}
	return &playbackLine{line: l}, nil
}

func (m *Mixer) line(dir mixer.Direction, d *device, f format.Format) (line, error) {
	if d == nil {
		return line{}, mixer.Unavailable(dir, m.info, f, errNoDevice)
	}
	ft, err := sampleFormat(f)
	if err != nil {
		return line{}, mixer.Unavailable(dir, m.info, f, err)
	}
	if d.channels > 0 && f.Channels > d.channels {
		return line{}, mixer.Unavailable(dir, m.info, f,
			fmt.Errorf("%d channels requested, device has %d", f.Channels, d.channels))
	}
	return line{
		LineState: mixer.NewLineState(dir, f),
		p:         m.p,
		dev:       d,
		ft:        ft,
	}, nil
}

// line is the device half shared by capture and playback lines.
type line struct {
	mixer.LineState
	p      *Platform
	dev    *device
	ft     malgo.FormatType
	buf    *buffer
	device *malgo.Device
}

func (l *line) open(kind malgo.DeviceType, onData malgo.DataProc) error {
	if l.IsOpen() {
		return errAlreadyOpen
	}
	if l.p.ctx == nil {
		return errors.New("miniaudio context closed")
	}
	f := l.Format()

	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.Alsa.NoMMap = 1
	sub := &cfg.Capture
	if kind == malgo.Playback {
		sub = &cfg.Playback
	}
	sub.Format = l.ft
	sub.Channels = uint32(f.Channels)
	if l.dev.id != (malgo.DeviceID{}) {
		sub.DeviceID = l.dev.id.Pointer()
	}

	l.buf = newBuffer(f.FrameSize * int(f.SampleRate*bufferDuration.Seconds()))
	dev, err := malgo.InitDevice(l.p.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("init %s device %q: %w", l.Direction(), l.dev.name, err)
	}
	l.device = dev
	l.MarkOpened()
	return nil
}

func (l *line) Start() error {
	if !l.IsOpen() {
		return mixer.ErrLineClosed
	}
	if err := l.device.Start(); err != nil {
		return fmt.Errorf("start %s device %q: %w", l.Direction(), l.dev.name, err)
	}
	l.MarkStarted()
	return nil
}

func (l *line) Stop() error {
	if !l.IsRunning() {
		return nil
	}
	err := l.device.Stop()
	l.MarkStopped()
	if err != nil {
		return fmt.Errorf("stop %s device %q: %w", l.Direction(), l.dev.name, err)
	}
	return nil
}

func (l *line) Close() error {
	if !l.IsOpen() {
		return nil
	}
	err := l.Stop()
	l.device.Uninit()
	l.device = nil
	if dropped := l.buf.dropped.Load(); dropped > 0 {
		l.p.log.Debug("line dropped audio", "line", l.Direction().String(), "device", l.dev.name, "bytes", dropped)
	}
	l.buf.reset()
	l.MarkClosed()
	return err
}

type captureLine struct {
	line
}

func (l *captureLine) Open() error {
	return l.open(malgo.Capture, func(_, in []byte, _ uint32) {
		l.buf.fill(in)
	})
}

// Read returns 0 until len(p) bytes are buffered.
func (l *captureLine) Read(p []byte) (int, error) {
	if !l.IsOpen() {
		return 0, mixer.ErrLineClosed
	}
	if len(p) > l.buf.capacity() {
		return 0, fmt.Errorf("read of %d bytes exceeds %d byte line buffer", len(p), l.buf.capacity())
	}
	n := l.buf.readFull(p)
	l.Advance(n / l.Format().FrameSize)
	return n, nil
}

type playbackLine struct {
	line
}

func (l *playbackLine) Open() error {
	return l.open(malgo.Playback, func(out, _ []byte, _ uint32) {
		l.buf.drain(out)
	})
}

// Write blocks until p is buffered for the device.
func (l *playbackLine) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		if !l.IsOpen() {
			return total, mixer.ErrLineClosed
		}
		n := l.buf.write(p)
		total += n
		p = p[n:]
		if len(p) == 0 {
			break
		}
		if !l.IsRunning() {
			return total, fmt.Errorf("playback line stopped with %d bytes pending", len(p))
		}
		time.Sleep(writePoll)
	}
	l.Advance(total / l.Format().FrameSize)
	return total, nil
}
