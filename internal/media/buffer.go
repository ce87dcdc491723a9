package media

import (
	"errors"
	"fmt"
	"time"
)

// AudioBuffer is decoded mono PCM ready for transcription.
type AudioBuffer struct {
	Samples    []int16
	SampleRate int
	// Channels is the channel count of the source before downmixing.
	Channels int
}

// Validate reports whether the buffer can be transcribed.
func (b *AudioBuffer) Validate() error {
	if b == nil {
		return errors.New("audio buffer is nil")
	}
	if len(b.Samples) == 0 {
		return errors.New("audio buffer has no samples")
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("audio buffer has invalid sample rate %d", b.SampleRate)
	}
	return nil
}

// Duration is the playback length of the buffer.
func (b *AudioBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// FloatToInt16 scales a sample in [-1, 1] by 32767 and truncates toward zero.
// Values outside the range are clamped first.
func FloatToInt16(v float64) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
