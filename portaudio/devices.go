package portaudio

/*
#cgo pkg-config: portaudio-2.0
#include <portaudio.h>
*/
import "C"
import (
	"errors"
)

// PaTime represents time in seconds as used by PortAudio (maps to C double).
type PaTime float64

type DeviceInfo struct {
	// Index is the PortAudio device index used when opening streams
	Index int
	Name  string
	// HostApiIndex indexes into HostApis()
	HostApiIndex             int
	MaxInputChannels         int
	MaxOutputChannels        int
	DefaultLowInputLatency   PaTime
	DefaultLowOutputLatency  PaTime
	DefaultHighInputLatency  PaTime
	DefaultHighOutputLatency PaTime
	DefaultSampleRate        float64
}

type HostApiInfo struct {
	Type                int
	Name                string
	DeviceCount         int
	DefaultInputDevice  int
	DefaultOutputDevice int
}

func GetDeviceCount() (int, error) {
	dc := int(C.Pa_GetDeviceCount())
	if dc < 0 {
		return 0, &PaError{dc}
	}
	return dc, nil
}

func GetDeviceInfo(deviceIdx int) (*DeviceInfo, error) {
	di := C.Pa_GetDeviceInfo(C.PaDeviceIndex(deviceIdx))
	if di == nil {
		return nil, errors.New("invalid device index")
	}

	return &DeviceInfo{
		Index:                    deviceIdx,
		Name:                     C.GoString(di.name),
		HostApiIndex:             int(di.hostApi),
		MaxInputChannels:         int(di.maxInputChannels),
		MaxOutputChannels:        int(di.maxOutputChannels),
		DefaultLowInputLatency:   PaTime(di.defaultLowInputLatency),
		DefaultLowOutputLatency:  PaTime(di.defaultLowOutputLatency),
		DefaultHighInputLatency:  PaTime(di.defaultHighInputLatency),
		DefaultHighOutputLatency: PaTime(di.defaultHighOutputLatency),
		DefaultSampleRate:        float64(di.defaultSampleRate),
	}, nil
}

// Devices returns all available audio devices in PortAudio index order.
func Devices() ([]*DeviceInfo, error) {
	count, err := GetDeviceCount()
	if err != nil {
		return nil, err
	}

	devices := make([]*DeviceInfo, count)
	for i := range count {
		devices[i], err = GetDeviceInfo(i)
		if err != nil {
			return nil, err
		}
	}
	return devices, nil
}

// DefaultInputDevice returns the default input device.
// Returns an error if no default input device is available.
func DefaultInputDevice() (*DeviceInfo, error) {
	index := int(C.Pa_GetDefaultInputDevice())
	if index < 0 {
		return nil, errors.New("no default input device available")
	}
	return GetDeviceInfo(index)
}

// DefaultOutputDevice returns the default output device.
// Returns an error if no default output device is available.
func DefaultOutputDevice() (*DeviceInfo, error) {
	index := int(C.Pa_GetDefaultOutputDevice())
	if index < 0 {
		return nil, errors.New("no default output device available")
	}
	return GetDeviceInfo(index)
}

func GetHostApiCount() (int, error) {
	hc := int(C.Pa_GetHostApiCount())
	if hc < 0 {
		return 0, &PaError{hc}
	}
	return hc, nil
}

func GetHostApiInfo(hostApiIdx int) (*HostApiInfo, error) {
	hi := C.Pa_GetHostApiInfo(C.PaHostApiIndex(hostApiIdx))
	if hi == nil {
		return nil, errors.New("invalid host API index")
	}

	return &HostApiInfo{
		Type:                int(hi._type),
		Name:                C.GoString(hi.name),
		DeviceCount:         int(hi.deviceCount),
		DefaultInputDevice:  int(hi.defaultInputDevice),
		DefaultOutputDevice: int(hi.defaultOutputDevice),
	}, nil
}

// HostApis returns all available host APIs in PortAudio index order.
func HostApis() ([]*HostApiInfo, error) {
	count, err := GetHostApiCount()
	if err != nil {
		return nil, err
	}

	apis := make([]*HostApiInfo, count)
	for i := range count {
		apis[i], err = GetHostApiInfo(i)
		if err != nil {
			return nil, err
		}
	}
	return apis, nil
}
