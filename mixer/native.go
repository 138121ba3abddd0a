package mixer

import (
	"golang.org/x/sys/cpu"

	"github.com/drgolem/go-audioprobe/format"
)

// NativeOrder reports whether samples of f are laid out in host byte order.
// Backends hand buffers to the device untouched, so only native order
// formats can be opened.
func NativeOrder(f format.Format) bool {
	return f.SampleSizeBits <= 8 || f.BigEndian == cpu.IsBigEndian
}
