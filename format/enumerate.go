package format

import (
	"log/slog"
)

// Candidate parameter space swept by the format test, in sweep order.
var (
	Encodings   = []Encoding{ALAW, PCMFloat, PCMSigned, PCMUnsigned, ULAW}
	SampleRates = []float64{8000, 16000, 32000}
	SampleSizes = []int{8, 16, 32}
	ChannelSets = []int{1, 2}
	ByteOrders  = []bool{true, false} // big-endian first
)

// All returns every buildable format of the candidate space, encoding
// outermost and byte order innermost.
func All() []Format {
	return AllWithLogger(nil)
}

// AllWithLogger is All, logging each rejected tuple at debug level when log
// is not nil.
func AllWithLogger(log *slog.Logger) []Format {
	formats := make([]Format, 0,
		len(Encodings)*len(SampleRates)*len(SampleSizes)*len(ChannelSets)*len(ByteOrders))

	for _, enc := range Encodings {
		for _, rate := range SampleRates {
			for _, size := range SampleSizes {
				for _, ch := range ChannelSets {
					for _, big := range ByteOrders {
						f, err := New(enc, rate, size, ch, big)
						if err != nil {
							if log != nil {
								log.Debug("skipping format", "error", err)
							}
							continue
						}
						formats = append(formats, f)
					}
				}
			}
		}
	}
	return formats
}
