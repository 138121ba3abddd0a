// Package format describes audio line formats: how samples are encoded, how
// fast they arrive and how they are laid out in a frame.
//
// A Format is an immutable value built with New or taken from one of the
// presets. All enumerates the fixed candidate space swept by the format test.
package format

import (
	"errors"
	"fmt"
	"strings"
)

const bitsPerByte = 8

// Encoding is the sample encoding of a format.
type Encoding int

const (
	ALAW Encoding = iota + 1
	ULAW
	PCMSigned
	PCMUnsigned
	PCMFloat
)

func (e Encoding) String() string {
	switch e {
	case ALAW:
		return "ALAW"
	case ULAW:
		return "ULAW"
	case PCMSigned:
		return "PCM_SIGNED"
	case PCMUnsigned:
		return "PCM_UNSIGNED"
	case PCMFloat:
		return "PCM_FLOAT"
	default:
		return fmt.Sprintf("Encoding(%d)", int(e))
	}
}

// IsPCM reports whether samples are linear PCM (integer or float).
func (e Encoding) IsPCM() bool {
	return e == PCMSigned || e == PCMUnsigned || e == PCMFloat
}

// IsCompanded reports whether samples are G.711 companded.
func (e Encoding) IsCompanded() bool {
	return e == ALAW || e == ULAW
}

func (e Encoding) valid() bool {
	return e >= ALAW && e <= PCMFloat
}

// ErrUnsupportedFormat is matched by every *UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// UnsupportedFormatError reports a parameter combination that cannot describe
// an audio line.
type UnsupportedFormatError struct {
	Encoding       Encoding
	SampleRate     float64
	SampleSizeBits int
	Channels       int
	Reason         string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported audio format %s %.1f Hz %d bit %d ch: %s",
		e.Encoding, e.SampleRate, e.SampleSizeBits, e.Channels, e.Reason)
}

func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// Format describes the layout of audio data on a line.
type Format struct {
	Encoding       Encoding
	SampleRate     float64
	SampleSizeBits int
	Channels       int
	// FrameSize is SampleSizeBits*Channels/8, truncated.
	FrameSize int
	// FrameRate equals SampleRate for every encoding.
	FrameRate float64
	BigEndian bool
}

// New builds a Format and derives its frame size and frame rate.
func New(enc Encoding, sampleRate float64, sampleSizeBits, channels int, bigEndian bool) (Format, error) {
	reject := func(reason string) (Format, error) {
		return Format{}, &UnsupportedFormatError{
			Encoding:       enc,
			SampleRate:     sampleRate,
			SampleSizeBits: sampleSizeBits,
			Channels:       channels,
			Reason:         reason,
		}
	}

	switch {
	case !enc.valid():
		return reject("unknown encoding")
	case sampleRate <= 0:
		return reject("sample rate must be positive")
	case sampleSizeBits <= 0:
		return reject("sample size must be positive")
	case channels <= 0:
		return reject("channel count must be positive")
	}

	frameSize := sampleSizeBits * channels / bitsPerByte
	if frameSize == 0 {
		return reject("frame size is zero")
	}

	return Format{
		Encoding:       enc,
		SampleRate:     sampleRate,
		SampleSizeBits: sampleSizeBits,
		Channels:       channels,
		FrameSize:      frameSize,
		FrameRate:      sampleRate,
		BigEndian:      bigEndian,
	}, nil
}

// IsZero reports whether f is the zero Format.
func (f Format) IsZero() bool {
	return f == Format{}
}

func (f Format) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %.1f Hz, %d bit, %s, %d bytes/frame",
		f.Encoding, f.SampleRate, f.SampleSizeBits, channelsName(f.Channels), f.FrameSize)
	if f.FrameRate != f.SampleRate {
		fmt.Fprintf(&sb, ", %.1f frames/second", f.FrameRate)
	}
	if f.SampleSizeBits > bitsPerByte {
		if f.BigEndian {
			sb.WriteString(", big-endian")
		} else {
			sb.WriteString(", little-endian")
		}
	}
	return sb.String()
}

func channelsName(n int) string {
	switch n {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	default:
		return fmt.Sprintf("%d channels", n)
	}
}
