// Package portaudio provides Go bindings for the parts of PortAudio needed to
// probe and exercise audio devices: library lifetime, device and host API
// enumeration, format support checks and blocking input/output streams.
//
// # Quick Start
//
//	if err := portaudio.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	defer portaudio.Terminate()
//
//	devices, _ := portaudio.Devices()
//	for _, d := range devices {
//	    params := portaudio.PaStreamParameters{
//	        DeviceIndex:  d.Index,
//	        ChannelCount: 1,
//	        SampleFormat: portaudio.SampleFmtInt16,
//	    }
//	    err := portaudio.IsFormatSupported(&params, nil, 8000)
//	    fmt.Println(d.Name, err == nil)
//	}
//
// # Blocking I/O
//
// Streams are opened in blocking mode only. Input streams are read with
// Read, output streams written with Write. GetReadAvailable reports how many
// captured frames can be read without blocking, so callers can poll instead
// of parking inside PortAudio.
//
// # Thread Safety
//
// This library is NOT thread-safe. Callers must ensure that:
//   - Initialize() and Terminate() are called from a single goroutine
//   - Each PaStream instance is accessed by only one goroutine at a time
//
// # See Also
//
//   - PortAudio documentation: http://www.portaudio.com/docs.html
package portaudio

/*
#cgo pkg-config: portaudio-2.0
#include <portaudio.h>

PaDeviceIndex Pa_GetDefaultInputDevice(void);
PaDeviceIndex Pa_GetDefaultOutputDevice(void);
const PaHostErrorInfo* Pa_GetLastHostErrorInfo(void);
*/
import "C"
import (
	"fmt"
	"sync"
)

var (
	// initialized tracks the initialization reference count
	initialized int
	// initMu protects the initialized counter
	initMu sync.Mutex
)

// PortAudio error codes the package inspects directly.
const (
	ErrNoError           = C.paNoError
	ErrBadStreamPtr      = C.paBadStreamPtr
	ErrInputOverflowed   = C.paInputOverflowed
	ErrOutputUnderflowed = C.paOutputUnderflowed
	ErrSampleFormat      = C.paSampleFormatNotSupported
	ErrInvalidSampleRate = C.paInvalidSampleRate
	ErrInvalidChannels   = C.paInvalidChannelCount
	ErrDeviceUnavailable = C.paDeviceUnavailable
)

// PaError is a PortAudio error code.
type PaError struct {
	ErrorCode int
}

func (e *PaError) Error() string {
	return GetErrorText(e.ErrorCode)
}

// UnanticipatedHostError represents a host-specific error that occurred
// within the underlying audio API (ALSA, CoreAudio, WASAPI, etc.).
type UnanticipatedHostError struct {
	Code          int
	Text          string
	HostApiType   int
	HostErrorCode int
	HostErrorText string
}

func (e *UnanticipatedHostError) Error() string {
	if e.HostErrorText != "" {
		return fmt.Sprintf("%s [Host API error %d: %s]", e.Text, e.HostErrorCode, e.HostErrorText)
	}
	return fmt.Sprintf("%s [Host API error %d]", e.Text, e.HostErrorCode)
}

func GetVersion() int {
	return int(C.Pa_GetVersion())
}

func GetVersionText() string {
	vi := C.Pa_GetVersionInfo()
	return C.GoString(vi.versionText)
}

func GetErrorText(errorCode int) string {
	return C.GoString(C.Pa_GetErrorText(C.PaError(errorCode)))
}

// newError creates an appropriate error from a PortAudio error code.
// For unanticipated host errors, it extracts detailed host-specific information.
func newError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}

	if code == C.paUnanticipatedHostError {
		hostErr := C.Pa_GetLastHostErrorInfo()
		if hostErr != nil {
			return &UnanticipatedHostError{
				Code:          int(code),
				Text:          C.GoString(C.Pa_GetErrorText(code)),
				HostApiType:   int(hostErr.hostApiType),
				HostErrorCode: int(hostErr.errorCode),
				HostErrorText: C.GoString(hostErr.errorText),
			}
		}
	}

	return &PaError{int(code)}
}

// Initialize initializes the PortAudio library.
//
// This function MUST be called before using any other PortAudio API functions.
// It uses reference counting: each call must be matched with a call to
// Terminate, and the library is only torn down by the last one.
//
// Thread Safety: This function is thread-safe due to internal mutex protection.
func Initialize() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized == 0 {
		errCode := C.Pa_Initialize()
		if errCode != C.paNoError {
			return newError(errCode)
		}
	}
	initialized++
	return nil
}

// Terminate releases one Initialize reference and shuts PortAudio down when
// the count reaches zero.
//
// Thread Safety: This function is thread-safe due to internal mutex protection.
func Terminate() error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized == 0 {
		return nil
	}

	initialized--
	if initialized == 0 {
		errCode := C.Pa_Terminate()
		if errCode != C.paNoError {
			initialized++ // restore count on error
			return newError(errCode)
		}
	}
	return nil
}
