package portaudio

/*
#cgo pkg-config: portaudio-2.0
#include <portaudio.h>
*/
import "C"
import (
	"errors"
	"fmt"
	"unsafe"
)

type PaSampleFormat int

const (
	SampleFmtFloat32 PaSampleFormat = C.paFloat32
	SampleFmtInt32   PaSampleFormat = C.paInt32
	SampleFmtInt24   PaSampleFormat = C.paInt24
	SampleFmtInt16   PaSampleFormat = C.paInt16
	SampleFmtInt8    PaSampleFormat = C.paInt8
	SampleFmtUInt8   PaSampleFormat = C.paUInt8
)

// PaStreamFlags specify special options when opening a stream
type PaStreamFlags int

const (
	// NoFlag is the default, no special flags set
	NoFlag PaStreamFlags = 0x00000000
	// ClipOff disables automatic output clipping.
	ClipOff PaStreamFlags = 0x00000001
	// DitherOff disables dithering when converting from float to integer samples
	DitherOff PaStreamFlags = 0x00000002
)

type PaStreamParameters struct {
	DeviceIndex  int
	ChannelCount int
	SampleFormat PaSampleFormat
	// SuggestedLatency is used by IsFormatSupported. Open requests the
	// device default latency, or this value when it is larger.
	SuggestedLatency PaTime
}

func (p *PaStreamParameters) toC(latency PaTime) *C.PaStreamParameters {
	return &C.PaStreamParameters{
		device:           C.PaDeviceIndex(p.DeviceIndex),
		channelCount:     C.int(p.ChannelCount),
		sampleFormat:     C.PaSampleFormat(p.SampleFormat),
		suggestedLatency: C.PaTime(latency),
	}
}

// frameBytes is the size of one interleaved frame for these parameters.
func (p *PaStreamParameters) frameBytes() int {
	return p.ChannelCount * GetSampleSize(p.SampleFormat)
}

// GetSampleSize returns the size in bytes for a given sample format.
// Returns 0 for unknown formats.
func GetSampleSize(format PaSampleFormat) int {
	switch format {
	case SampleFmtFloat32, SampleFmtInt32:
		return 4
	case SampleFmtInt24:
		return 3
	case SampleFmtInt16:
		return 2
	case SampleFmtInt8, SampleFmtUInt8:
		return 1
	default:
		return 0
	}
}

// IsFormatSupported reports whether a stream with the given parameters could
// be opened. Either parameter set may be nil. A nil error means supported.
func IsFormatSupported(inputParameters *PaStreamParameters, outputParameters *PaStreamParameters, sampleRate float64) error {
	var inParams, outParams *C.PaStreamParameters

	if inputParameters != nil {
		inParams = inputParameters.toC(inputParameters.SuggestedLatency)
	}
	if outputParameters != nil {
		outParams = outputParameters.toC(outputParameters.SuggestedLatency)
	}

	errCode := C.Pa_IsFormatSupported(inParams, outParams, C.double(sampleRate))
	if errCode != C.paFormatIsSupported {
		return newError(errCode)
	}
	return nil
}

// PaStream is a blocking-mode PortAudio stream with exactly one direction.
type PaStream struct {
	stream           unsafe.Pointer
	isOpen           bool
	InputParameters  *PaStreamParameters // nil for output streams
	OutputParameters *PaStreamParameters // nil for input streams
	SampleRate       float64
	StreamFlags      PaStreamFlags
	// UseHighLatency when true uses the device's default high latency instead
	// of the low one. Recommended for blocking I/O to avoid xruns.
	UseHighLatency bool

	inputOverflows   uint64
	outputUnderflows uint64
}

// NewInputStream checks that the device accepts inParams at sampleRate and
// returns an unopened capture stream.
func NewInputStream(inParams PaStreamParameters, sampleRate float64) (*PaStream, error) {
	if err := IsFormatSupported(&inParams, nil, sampleRate); err != nil {
		return nil, err
	}

	return &PaStream{
		InputParameters: &inParams,
		SampleRate:      sampleRate,
		UseHighLatency:  true,
	}, nil
}

// NewOutputStream checks that the device accepts outParams at sampleRate and
// returns an unopened playback stream.
func NewOutputStream(outParams PaStreamParameters, sampleRate float64) (*PaStream, error) {
	if err := IsFormatSupported(nil, &outParams, sampleRate); err != nil {
		return nil, err
	}

	return &PaStream{
		OutputParameters: &outParams,
		SampleRate:       sampleRate,
		UseHighLatency:   true,
		StreamFlags:      ClipOff,
	}, nil
}

// IsOpen reports whether Open succeeded and Close has not been called since.
func (s *PaStream) IsOpen() bool {
	return s.isOpen
}

func (s *PaStream) Open(framesPerBuffer int) error {
	if s.isOpen {
		return errors.New("stream already open")
	}

	if framesPerBuffer <= 0 {
		return errors.New("framesPerBuffer must be positive")
	}

	var inParams, outParams *C.PaStreamParameters

	if s.InputParameters != nil {
		di, err := GetDeviceInfo(s.InputParameters.DeviceIndex)
		if err != nil {
			return err
		}

		latency := di.DefaultLowInputLatency
		if s.UseHighLatency {
			latency = di.DefaultHighInputLatency
		}
		latency = max(latency, s.InputParameters.SuggestedLatency)
		inParams = s.InputParameters.toC(latency)
	}

	if s.OutputParameters != nil {
		di, err := GetDeviceInfo(s.OutputParameters.DeviceIndex)
		if err != nil {
			return err
		}

		latency := di.DefaultLowOutputLatency
		if s.UseHighLatency {
			latency = di.DefaultHighOutputLatency
		}
		latency = max(latency, s.OutputParameters.SuggestedLatency)
		outParams = s.OutputParameters.toC(latency)
	}

	errCode := C.Pa_OpenStream(&s.stream,
		inParams,
		outParams,
		C.double(s.SampleRate),
		C.ulong(framesPerBuffer),
		C.PaStreamFlags(s.StreamFlags),
		nil,
		nil)
	if errCode != C.paNoError {
		return newError(errCode)
	}

	s.isOpen = true
	return nil
}

// Close closes the stream. Closing a stream that is not open is a no-op.
func (s *PaStream) Close() error {
	if !s.isOpen {
		return nil
	}

	errCode := C.Pa_CloseStream(s.stream)
	if errCode != C.paNoError {
		return newError(errCode)
	}

	s.isOpen = false
	s.stream = nil
	return nil
}

func (s *PaStream) StartStream() error {
	if !s.isOpen {
		return &PaError{int(C.paBadStreamPtr)}
	}

	errCode := C.Pa_StartStream(s.stream)
	if errCode != C.paNoError {
		return newError(errCode)
	}
	return nil
}

func (s *PaStream) StopStream() error {
	if !s.isOpen {
		return &PaError{int(C.paBadStreamPtr)}
	}

	errCode := C.Pa_StopStream(s.stream)
	if errCode != C.paNoError {
		return newError(errCode)
	}
	return nil
}

// GetReadAvailable returns the number of frames that can be read without blocking.
func (s *PaStream) GetReadAvailable() (int, error) {
	if !s.isOpen || s.InputParameters == nil {
		return 0, &PaError{int(C.paBadStreamPtr)}
	}

	ra := C.Pa_GetStreamReadAvailable(s.stream)
	if ra < 0 {
		return 0, &PaError{int(ra)}
	}
	return int(ra), nil
}

// Read fills buf with frames of captured audio, blocking until all of them
// have arrived. buf must hold exactly frames * channelCount * sampleSize bytes.
// Input overflows are counted, not reported as errors.
func (s *PaStream) Read(frames int, buf []byte) error {
	if !s.isOpen || s.InputParameters == nil {
		return &PaError{int(C.paBadStreamPtr)}
	}
	if err := checkBuffer(frames, buf, s.InputParameters); err != nil {
		return err
	}

	errCode := C.Pa_ReadStream(s.stream, unsafe.Pointer(&buf[0]), C.ulong(frames))
	switch errCode {
	case C.paNoError:
		return nil
	case C.paInputOverflowed:
		s.inputOverflows++
		return nil
	default:
		return newError(errCode)
	}
}

// Write writes frames of interleaved audio from buf to the stream.
// buf must hold exactly frames * channelCount * sampleSize bytes.
// Output underflows are counted, not reported as errors.
func (s *PaStream) Write(frames int, buf []byte) error {
	if !s.isOpen || s.OutputParameters == nil {
		return &PaError{int(C.paBadStreamPtr)}
	}
	if err := checkBuffer(frames, buf, s.OutputParameters); err != nil {
		return err
	}

	errCode := C.Pa_WriteStream(s.stream, unsafe.Pointer(&buf[0]), C.ulong(frames))
	switch errCode {
	case C.paNoError:
		return nil
	case C.paOutputUnderflowed:
		s.outputUnderflows++
		return nil
	default:
		return newError(errCode)
	}
}

// Overflows returns the number of reads that reported lost input.
func (s *PaStream) Overflows() uint64 {
	return s.inputOverflows
}

// Underflows returns the number of writes that reported an output gap.
func (s *PaStream) Underflows() uint64 {
	return s.outputUnderflows
}

func checkBuffer(frames int, buf []byte, params *PaStreamParameters) error {
	if len(buf) == 0 {
		return errors.New("buffer is empty")
	}
	if frames <= 0 {
		return errors.New("frames must be positive")
	}

	frameBytes := params.frameBytes()
	if frameBytes == 0 {
		return errors.New("unsupported sample format")
	}

	if expected := frames * frameBytes; len(buf) != expected {
		return fmt.Errorf("buffer size mismatch: expected %d bytes for %d frames, got %d bytes",
			expected, frames, len(buf))
	}
	return nil
}
