package protocol

// Coyote waveform frequency quantization. Input Hz in [10,1000] maps onto a
// wire byte in [10,240] through three linear segments: [10,100] passes
// through, (100,600] is compressed 5:1, (600,1000] is compressed 10:1. The
// mapping is monotonic and invertible up to each segment's step.
const (
	MinFrequencyHz = 10
	MaxFrequencyHz = 1000

	minFrequencyByte = 10
	maxFrequencyByte = 240
)

// EncodeFrequency quantizes a pulse frequency in Hz to its wire byte,
// clamping out-of-range input to the supported band first.
func EncodeFrequency(hz int) byte {
	if hz < MinFrequencyHz {
		hz = MinFrequencyHz
	}
	if hz > MaxFrequencyHz {
		hz = MaxFrequencyHz
	}
	switch {
	case hz <= 100:
		return byte(hz)
	case hz <= 600:
		return byte(100 + (hz-100)/5)
	default:
		return byte(200 + (hz-600)/10)
	}
}

// DecodeFrequency inverts EncodeFrequency segment by segment. It is an exact
// inverse for every byte in [10,240]; Hz round-trips exactly on [10,100] and
// within the 5 / 10 quantization step on the compressed segments.
func DecodeFrequency(b byte) int {
	v := int(b)
	switch {
	case v <= minFrequencyByte:
		return MinFrequencyHz
	case v <= 100:
		return v
	case v <= 200:
		return 100 + (v-100)*5
	default:
		if v > maxFrequencyByte {
			v = maxFrequencyByte
		}
		return 600 + (v-200)*10
	}
}
