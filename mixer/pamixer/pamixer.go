// Package pamixer implements mixer.Platform on top of PortAudio. Every
// PortAudio device is one mixer; lines are blocking-mode streams.
package pamixer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
	"github.com/drgolem/go-audioprobe/portaudio"
)

// minCaptureLatency keeps enough audio in the host buffer for a loopback
// block to become readable in one piece.
const minCaptureLatency portaudio.PaTime = 1.0

// framesPerBuffer is the stream buffer size passed to Pa_OpenStream.
const framesPerBuffer = 512

var (
	errByteOrder   = errors.New("non-native byte order")
	errNoDirection = errors.New("device has no channels in this direction")
	errAlreadyOpen = errors.New("line already open")
)

// Platform is the PortAudio audio subsystem.
type Platform struct {
	log    *slog.Logger
	closed bool
}

// New initializes PortAudio. Close must be called when done.
func New(log *slog.Logger) (*Platform, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	log.Debug("portaudio initialized", "version", portaudio.GetVersionText())
	return &Platform{log: log}, nil
}

func (p *Platform) Name() string { return "portaudio" }

func (p *Platform) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return portaudio.Terminate()
}

func (p *Platform) Mixers() ([]mixer.Mixer, error) {
	if p.closed {
		return nil, errors.New("portaudio platform closed")
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	hostApis := map[int]string{}
	if apis, err := portaudio.HostApis(); err != nil {
		p.log.Warn("unable to list host APIs", "error", err)
	} else {
		for i, api := range apis {
			hostApis[i] = api.Name
		}
	}

	defIn, defOut := -1, -1
	if d, err := portaudio.DefaultInputDevice(); err == nil {
		defIn = d.Index
	}
	if d, err := portaudio.DefaultOutputDevice(); err == nil {
		defOut = d.Index
	}

	version := portaudio.GetVersionText()
	mixers := make([]mixer.Mixer, 0, len(devices))
	for _, dev := range devices {
		vendor, ok := hostApis[dev.HostApiIndex]
		if !ok {
			vendor = fmt.Sprintf("host API %d", dev.HostApiIndex)
		}
		mixers = append(mixers, &Mixer{
			dev: dev,
			log: p.log,
			info: mixer.Info{
				Name:                dev.Name,
				Vendor:              vendor,
				Description:         describe(dev, vendor, dev.Index == defIn, dev.Index == defOut),
				Version:             version,
				MaxCaptureChannels:  dev.MaxInputChannels,
				MaxPlaybackChannels: dev.MaxOutputChannels,
			},
		})
	}
	return mixers, nil
}

func describe(dev *portaudio.DeviceInfo, vendor string, defaultIn, defaultOut bool) string {
	s := fmt.Sprintf("%s device %d, %d in / %d out channels, %.0f Hz default",
		vendor, dev.Index, dev.MaxInputChannels, dev.MaxOutputChannels, dev.DefaultSampleRate)
	switch {
	case defaultIn && defaultOut:
		s += ", default input and output"
	case defaultIn:
		s += ", default input"
	case defaultOut:
		s += ", default output"
	}
	return s
}

// Mixer is one PortAudio device.
type Mixer struct {
	dev  *portaudio.DeviceInfo
	info mixer.Info
	log  *slog.Logger
}

func (m *Mixer) Info() mixer.Info { return m.info }

func (m *Mixer) CaptureLine(f format.Format) (mixer.CaptureLine, error) {
	if m.dev.MaxInputChannels == 0 {
		return nil, mixer.Unavailable(mixer.Capture, m.info, f, errNoDirection)
	}
	params, err := m.params(f, m.dev.DefaultHighInputLatency)
	if err != nil {
		return nil, mixer.Unavailable(mixer.Capture, m.info, f, err)
	}
	params.SuggestedLatency = max(params.SuggestedLatency, minCaptureLatency)

	stream, err := portaudio.NewInputStream(params, f.SampleRate)
	if err != nil {
		return nil, mixer.Unavailable(mixer.Capture, m.info, f, err)
	}
	return &captureLine{line: newLine(mixer.Capture, f, stream, m)}, nil
}

func (m *Mixer) PlaybackLine(f format.Format) (mixer.PlaybackLine, error) {
	if m.dev.MaxOutputChannels == 0 {
		return nil, mixer.Unavailable(mixer.Playback, m.info, f, errNoDirection)
	}
	params, err := m.params(f, m.dev.DefaultHighOutputLatency)
	if err != nil {
		return nil, mixer.Unavailable(mixer.Playback, m.info, f, err)
	}

	stream, err := portaudio.NewOutputStream(params, f.SampleRate)
	if err != nil {
		return nil, mixer.Unavailable(mixer.Playback, m.info, f, err)
	}
	return &playbackLine{line: newLine(mixer.Playback, f, stream, m)}, nil
}

func (m *Mixer) params(f format.Format, latency portaudio.PaTime) (portaudio.PaStreamParameters, error) {
	sf, err := sampleFormat(f)
	if err != nil {
		return portaudio.PaStreamParameters{}, err
	}
	return portaudio.PaStreamParameters{
		DeviceIndex:      m.dev.Index,
		ChannelCount:     f.Channels,
		SampleFormat:     sf,
		SuggestedLatency: latency,
	}, nil
}

// sampleFormat maps f to the PortAudio sample format carrying it unchanged.
func sampleFormat(f format.Format) (portaudio.PaSampleFormat, error) {
	if !mixer.NativeOrder(f) {
		return 0, errByteOrder
	}

	switch {
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 8:
		return portaudio.SampleFmtInt8, nil
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 16:
		return portaudio.SampleFmtInt16, nil
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 24:
		return portaudio.SampleFmtInt24, nil
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 32:
		return portaudio.SampleFmtInt32, nil
	case f.Encoding == format.PCMUnsigned && f.SampleSizeBits == 8:
		return portaudio.SampleFmtUInt8, nil
	case f.Encoding == format.PCMFloat && f.SampleSizeBits == 32:
		return portaudio.SampleFmtFloat32, nil
	default:
		return 0, fmt.Errorf("%s %d bit samples not supported by portaudio", f.Encoding, f.SampleSizeBits)
	}
}

// line adapts a PaStream to the mixer.Line lifecycle.
type line struct {
	mixer.LineState
	stream *portaudio.PaStream
	name   string
	log    *slog.Logger
}

func newLine(dir mixer.Direction, f format.Format, stream *portaudio.PaStream, m *Mixer) line {
	return line{
		LineState: mixer.NewLineState(dir, f),
		stream:    stream,
		name:      m.info.Name,
		log:       m.log,
	}
}

func (l *line) Open() error {
	if l.IsOpen() {
		return errAlreadyOpen
	}
	if err := l.stream.Open(framesPerBuffer); err != nil {
		return fmt.Errorf("open %s stream on %q: %w", l.Direction(), l.name, err)
	}
	l.MarkOpened()
	return nil
}

func (l *line) Start() error {
	if !l.IsOpen() {
		return mixer.ErrLineClosed
	}
	if err := l.stream.StartStream(); err != nil {
		return fmt.Errorf("start %s stream on %q: %w", l.Direction(), l.name, err)
	}
	l.MarkStarted()
	return nil
}

func (l *line) Stop() error {
	if !l.IsRunning() {
		return nil
	}
	err := l.stream.StopStream()
	l.MarkStopped()
	if err != nil {
		return fmt.Errorf("stop %s stream on %q: %w", l.Direction(), l.name, err)
	}
	return nil
}

func (l *line) Close() error {
	if !l.IsOpen() {
		return nil
	}
	stopErr := l.Stop()
	closeErr := l.stream.Close()
	if n := l.stream.Overflows() + l.stream.Underflows(); n > 0 {
		l.log.Debug("stream xruns", "line", l.Direction().String(), "device", l.name, "count", n)
	}
	l.MarkClosed()
	return errors.Join(stopErr, closeErr)
}

// frames converts a buffer length to whole frames.
func (l *line) frames(p []byte) (int, error) {
	fs := l.Format().FrameSize
	if len(p) == 0 || len(p)%fs != 0 {
		return 0, fmt.Errorf("buffer of %d bytes is not a whole number of %d byte frames", len(p), fs)
	}
	return len(p) / fs, nil
}

type captureLine struct {
	line
}

// Read returns 0 until the stream has len(p) bytes available, then reads
// them.
func (l *captureLine) Read(p []byte) (int, error) {
	if !l.IsOpen() {
		return 0, mixer.ErrLineClosed
	}
	frames, err := l.frames(p)
	if err != nil {
		return 0, err
	}

	avail, err := l.stream.GetReadAvailable()
	if err != nil {
		return 0, fmt.Errorf("read available on %q: %w", l.name, err)
	}
	if avail < frames {
		return 0, nil
	}
	if err := l.stream.Read(frames, p); err != nil {
		return 0, fmt.Errorf("read from %q: %w", l.name, err)
	}
	l.Advance(frames)
	return len(p), nil
}

type playbackLine struct {
	line
}

// Write blocks until p has been handed to the stream.
func (l *playbackLine) Write(p []byte) (int, error) {
	if !l.IsOpen() {
		return 0, mixer.ErrLineClosed
	}
	frames, err := l.frames(p)
	if err != nil {
		return 0, err
	}
	if err := l.stream.Write(frames, p); err != nil {
		return 0, fmt.Errorf("write to %q: %w", l.name, err)
	}
	l.Advance(frames)
	return len(p), nil
}
