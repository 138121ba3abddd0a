package malgomixer

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/drgolem/go-audioprobe/format"
	"github.com/drgolem/go-audioprobe/mixer"
)

var (
	errByteOrder = errors.New("non-native byte order")
	errNoDevice  = errors.New("mixer has no device in this direction")
)

// sampleFormat maps f to the miniaudio sample format carrying it unchanged.
func sampleFormat(f format.Format) (malgo.FormatType, error) {
	if !mixer.NativeOrder(f) {
		return malgo.FormatUnknown, errByteOrder
	}

	var ft malgo.FormatType
	switch {
	case f.Encoding == format.PCMUnsigned && f.SampleSizeBits == 8:
		ft = malgo.FormatU8
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 16:
		ft = malgo.FormatS16
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 24:
		ft = malgo.FormatS24
	case f.Encoding == format.PCMSigned && f.SampleSizeBits == 32:
		ft = malgo.FormatS32
	case f.Encoding == format.PCMFloat && f.SampleSizeBits == 32:
		ft = malgo.FormatF32
	default:
		return malgo.FormatUnknown, fmt.Errorf("%s %d bit samples not supported by miniaudio", f.Encoding, f.SampleSizeBits)
	}
	return ft, nil
}
