package format

import (
	"fmt"
	"slices"
	"strings"
)

// Preset names accepted by Preset.
const (
	PresetSystem    = "system"
	PresetMedium    = "medium"
	PresetTelephony = "telephony"
)

// PresetNames lists the preset names in a stable order.
var PresetNames = []string{PresetSystem, PresetMedium, PresetTelephony}

// System is 32 kHz 16-bit stereo signed PCM, little-endian.
func System() Format {
	return mustNew(PCMSigned, 32000, 16, 2, false)
}

// Medium is 32 kHz 8-bit stereo u-law.
func Medium() Format {
	return mustNew(ULAW, 32000, 8, 2, false)
}

// Telephony is 8 kHz 8-bit mono u-law, the loopback test format.
func Telephony() Format {
	return mustNew(ULAW, 8000, 8, 1, false)
}

// Preset returns the named preset format.
func Preset(name string) (Format, error) {
	switch strings.ToLower(name) {
	case PresetSystem:
		return System(), nil
	case PresetMedium:
		return Medium(), nil
	case PresetTelephony:
		return Telephony(), nil
	default:
		return Format{}, fmt.Errorf("unknown format preset %q (want one of %s)",
			name, strings.Join(PresetNames, ", "))
	}
}

// IsPreset reports whether name is a known preset.
func IsPreset(name string) bool {
	return slices.Contains(PresetNames, strings.ToLower(name))
}

func mustNew(enc Encoding, sampleRate float64, sampleSizeBits, channels int, bigEndian bool) Format {
	f, err := New(enc, sampleRate, sampleSizeBits, channels, bigEndian)
	if err != nil {
		panic(err)
	}
	return f
}
