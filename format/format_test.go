package format

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewDerivesFrameSize(t *testing.T) {
	for _, enc := range Encodings {
		for _, rate := range SampleRates {
			for _, size := range SampleSizes {
				for _, ch := range ChannelSets {
					f, err := New(enc, rate, size, ch, false)
					if err != nil {
						t.Fatalf("New(%s, %v, %d, %d) failed: %v", enc, rate, size, ch, err)
					}
					if want := size * ch / 8; f.FrameSize != want {
						t.Errorf("%v: FrameSize = %d, want %d", f, f.FrameSize, want)
					}
					if f.FrameRate != rate {
						t.Errorf("%v: FrameRate = %v, want %v", f, f.FrameRate, rate)
					}
				}
			}
		}
	}
}

func TestNewTruncatesFrameSize(t *testing.T) {
	tests := []struct {
		bits, channels, want int
	}{
		{12, 1, 1},
		{12, 2, 3},
		{20, 3, 7},
		{24, 2, 6},
	}

	for _, tt := range tests {
		f, err := New(PCMSigned, 8000, tt.bits, tt.channels, false)
		if err != nil {
			t.Fatalf("New(%d bits, %d ch) failed: %v", tt.bits, tt.channels, err)
		}
		if f.FrameSize != tt.want {
			t.Errorf("New(%d bits, %d ch).FrameSize = %d, want %d", tt.bits, tt.channels, f.FrameSize, tt.want)
		}
	}
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name     string
		enc      Encoding
		rate     float64
		bits     int
		channels int
	}{
		{"unknown encoding", Encoding(42), 8000, 8, 1},
		{"zero rate", PCMSigned, 0, 16, 1},
		{"negative rate", PCMSigned, -8000, 16, 1},
		{"zero bits", PCMSigned, 8000, 0, 1},
		{"zero channels", PCMSigned, 8000, 16, 0},
		{"zero frame size", PCMSigned, 8000, 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.enc, tt.rate, tt.bits, tt.channels, false)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("error %v does not match ErrUnsupportedFormat", err)
			}
			var ufe *UnsupportedFormatError
			if !errors.As(err, &ufe) {
				t.Fatalf("error %T is not *UnsupportedFormatError", err)
			}
			if ufe.Reason == "" {
				t.Error("empty rejection reason")
			}
		})
	}
}

func TestAllOrder(t *testing.T) {
	all := All()
	if len(all) != 180 {
		t.Fatalf("All() returned %d formats, want 180", len(all))
	}

	i := 0
	for _, enc := range Encodings {
		for _, rate := range SampleRates {
			for _, size := range SampleSizes {
				for _, ch := range ChannelSets {
					for _, big := range ByteOrders {
						f := all[i]
						if f.Encoding != enc || f.SampleRate != rate || f.SampleSizeBits != size ||
							f.Channels != ch || f.BigEndian != big {
							t.Fatalf("All()[%d] = %v (big=%v), want %s %v %d %d big=%v",
								i, f, f.BigEndian, enc, rate, size, ch, big)
						}
						i++
					}
				}
			}
		}
	}

	if first := all[0]; first.Encoding != ALAW || !first.BigEndian {
		t.Errorf("first format = %v, want big-endian ALAW", first)
	}
	if last := all[len(all)-1]; last.Encoding != ULAW || last.BigEndian || last.Channels != 2 {
		t.Errorf("last format = %v, want little-endian stereo ULAW", last)
	}
}

func TestAllSkipsRejectedTuples(t *testing.T) {
	saved := SampleSizes
	SampleSizes = []int{4, 8, 16}
	defer func() { SampleSizes = saved }()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	all := AllWithLogger(log)

	// 4-bit mono has a zero frame size, 4-bit stereo is one byte.
	want := 5 * 3 * (1 + 2 + 2) * 2
	if len(all) != want {
		t.Fatalf("AllWithLogger returned %d formats, want %d", len(all), want)
	}
	if got := strings.Count(buf.String(), "skipping format"); got != 5*3*2 {
		t.Errorf("logged %d skipped tuples, want %d", got, 5*3*2)
	}

	// Survivors keep their relative order.
	prev := -1
	for _, f := range all {
		idx := indexOf(Encodings, f.Encoding)
		if idx < prev {
			t.Fatalf("encoding order broken at %v", f)
		}
		prev = idx
	}
}

func indexOf(encs []Encoding, e Encoding) int {
	for i, x := range encs {
		if x == e {
			return i
		}
	}
	return -1
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name string
		got  Format
		enc  Encoding
		rate float64
		bits int
		ch   int
	}{
		{PresetSystem, System(), PCMSigned, 32000, 16, 2},
		{PresetMedium, Medium(), ULAW, 32000, 8, 2},
		{PresetTelephony, Telephony(), ULAW, 8000, 8, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.got
			if f.Encoding != tt.enc || f.SampleRate != tt.rate || f.SampleSizeBits != tt.bits ||
				f.Channels != tt.ch || f.BigEndian {
				t.Errorf("preset %s = %v", tt.name, f)
			}

			byName, err := Preset(strings.ToUpper(tt.name))
			if err != nil {
				t.Fatalf("Preset(%q) failed: %v", tt.name, err)
			}
			if byName != f {
				t.Errorf("Preset(%q) = %v, want %v", tt.name, byName, f)
			}
		})
	}

	if Telephony().FrameSize != 1 {
		t.Errorf("telephony frame size = %d, want 1", Telephony().FrameSize)
	}
	if _, err := Preset("cd"); err == nil {
		t.Error("Preset(cd) should fail")
	}
	if IsPreset("cd") || !IsPreset("System") {
		t.Error("IsPreset mismatch")
	}
}

func TestConversionSupported(t *testing.T) {
	alaw, _ := New(ALAW, 32000, 8, 2, false)
	float32LE, _ := New(PCMFloat, 32000, 32, 2, false)
	unsigned16BE, _ := New(PCMUnsigned, 32000, 16, 2, true)
	signed8, _ := New(PCMSigned, 32000, 8, 2, false)
	mono16, _ := New(PCMSigned, 32000, 16, 1, false)

	tests := []struct {
		name           string
		target, source Format
		want           bool
	}{
		{"identity", Telephony(), Telephony(), true},
		{"system to medium", System(), Medium(), true},
		{"medium to system", Medium(), System(), true},
		{"medium to telephony", Medium(), Telephony(), false},
		{"ulaw to alaw", alaw, Medium(), true},
		{"signed to unsigned big-endian", unsigned16BE, System(), true},
		{"float to signed", float32LE, System(), true},
		{"8-bit pcm to ulaw", Medium(), signed8, false},
		{"channel change", mono16, System(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConversionSupported(tt.target, tt.source); got != tt.want {
				t.Errorf("ConversionSupported(%v, %v) = %v, want %v", tt.target, tt.source, got, tt.want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	tests := []struct {
		f    Format
		want string
	}{
		{Telephony(), "ULAW 8000.0 Hz, 8 bit, mono, 1 bytes/frame"},
		{System(), "PCM_SIGNED 32000.0 Hz, 16 bit, stereo, 4 bytes/frame, little-endian"},
	}

	for _, tt := range tests {
		if got := tt.f.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}

	if got := Encoding(9).String(); got != "Encoding(9)" {
		t.Errorf("unknown encoding String() = %q", got)
	}
}
