package recording

import (
	"encoding/binary"
	"math"
)

// DefaultVoiceThreshold is the RMS, relative to full scale, above which a
// frame counts as speech. It sits at about -40 dBFS, above the noise floor
// of a typical laptop microphone.
const DefaultVoiceThreshold = 0.01

// Level is the loudness of a frame relative to full scale, in [0, 1].
type Level struct {
	RMS  float64
	Peak float64
}

// Voiced reports whether the frame is loud enough to be speech.
func (l Level) Voiced(threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultVoiceThreshold
	}
	return l.RMS >= threshold
}

// Measure computes the level of signed 16-bit little-endian PCM. A trailing
// odd byte is ignored.
func Measure(pcm []byte) Level {
	samples := len(pcm) / 2
	if samples == 0 {
		return Level{}
	}

	var sum float64
	var peak float64
	for i := 0; i < samples; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[2*i:]))) / 32768
		sum += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return Level{RMS: math.Sqrt(sum / float64(samples)), Peak: peak}
}
