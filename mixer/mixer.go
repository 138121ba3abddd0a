// Package mixer defines the platform audio abstraction the probes run
// against: a Platform enumerates Mixers, and a Mixer hands out capture and
// playback lines bound to one format.
//
// Backends live in subpackages (pamixer, malgomixer); mixertest provides a
// simulated platform.
package mixer

import (
	"errors"
	"fmt"

	"github.com/drgolem/go-audioprobe/format"
)

var (
	// ErrLineUnavailable is matched by every *LineUnavailableError.
	ErrLineUnavailable = errors.New("line unavailable")
	// ErrLineClosed is returned by I/O on a line that is not open.
	ErrLineClosed = errors.New("line is not open")
)

// Direction tells capture lines from playback lines.
type Direction int

const (
	Capture Direction = iota
	Playback
)

func (d Direction) String() string {
	if d == Capture {
		return "capture"
	}
	return "playback"
}

// Info describes a mixer.
type Info struct {
	Name        string
	Vendor      string
	Description string
	Version     string
	// Channel limits across the mixer's lines; zero means the direction is absent.
	MaxCaptureChannels  int
	MaxPlaybackChannels int
}

// Line is an audio line bound to one format. Close must be safe to call on a
// line that was never opened, and more than once.
type Line interface {
	Direction() Direction
	Format() format.Format
	AddListener(Listener)
	IsOpen() bool
	Open() error
	Start() error
	Stop() error
	Close() error
}

// CaptureLine reads audio from an input device. Read never blocks waiting
// for data: it returns 0 until a full buffer is available.
type CaptureLine interface {
	Line
	Read(p []byte) (int, error)
}

// PlaybackLine writes audio to an output device.
type PlaybackLine interface {
	Line
	Write(p []byte) (int, error)
}

// Mixer is one audio device.
type Mixer interface {
	Info() Info
	// CaptureLine returns an unopened capture line for f, or an error
	// matching ErrLineUnavailable when the mixer cannot provide one.
	CaptureLine(f format.Format) (CaptureLine, error)
	// PlaybackLine returns an unopened playback line for f, or an error
	// matching ErrLineUnavailable when the mixer cannot provide one.
	PlaybackLine(f format.Format) (PlaybackLine, error)
}

// Platform is a host audio subsystem.
type Platform interface {
	Name() string
	Mixers() ([]Mixer, error)
	Close() error
}

// LineUnavailableError reports that a mixer has no line for a format.
type LineUnavailableError struct {
	Direction Direction
	Mixer     string
	Format    format.Format
	Err       error
}

func (e *LineUnavailableError) Error() string {
	msg := fmt.Sprintf("no %s line on %q supporting format %v", e.Direction, e.Mixer, e.Format)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LineUnavailableError) Unwrap() error { return e.Err }

func (e *LineUnavailableError) Is(target error) bool {
	return target == ErrLineUnavailable
}

// Unavailable is shorthand for building a *LineUnavailableError.
func Unavailable(dir Direction, m Info, f format.Format, err error) error {
	return &LineUnavailableError{Direction: dir, Mixer: m.Name, Format: f, Err: err}
}
