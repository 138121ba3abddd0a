package format

// ConversionSupported reports whether data in the source format can be
// converted to the target format by a plain sample codec. Sample rate and
// channel count must match; only encoding, sample size and byte order may
// differ.
func ConversionSupported(target, source Format) bool {
	if target == source {
		return true
	}
	if target.SampleRate != source.SampleRate || target.Channels != source.Channels {
		return false
	}
	return codecPair(source, target) || codecPair(target, source)
}

// codecPair checks one direction of the symmetric codec table.
func codecPair(a, b Format) bool {
	switch {
	case a.Encoding == PCMSigned || a.Encoding == PCMUnsigned:
		switch b.Encoding {
		case PCMSigned, PCMUnsigned:
			// sign and byte order changes
			return a.SampleSizeBits == b.SampleSizeBits
		case ULAW, ALAW:
			return a.Encoding == PCMSigned && a.SampleSizeBits == 16 && b.SampleSizeBits == 8
		case PCMFloat:
			return b.SampleSizeBits == 32 && isIntegerSize(a.SampleSizeBits)
		}
	case a.Encoding.IsCompanded() && b.Encoding.IsCompanded():
		return a.SampleSizeBits == 8 && b.SampleSizeBits == 8
	}
	return false
}

func isIntegerSize(bits int) bool {
	return bits == 8 || bits == 16 || bits == 32
}
