package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
)

// mp3BlockFrames is the number of frames pulled per block from either decoder.
const mp3BlockFrames = 4096

// decoder is one attempt in a format-sniffing chain.
type decoder struct {
	name   string
	decode func(data []byte) (*AudioBuffer, error)
}

var (
	wavDecoder = decoder{name: "wav", decode: decodeWAV}
	mp3Decoder = decoder{name: "mp3", decode: decodeMP3}
)

// decodeChain tries each decoder in order and returns the first valid buffer.
// When every attempt fails the returned *MediaDecodeError carries all of them.
func decodeChain(data []byte, ext string, chain []decoder) (*AudioBuffer, error) {
	attempts := make([]error, 0, len(chain))
	for _, d := range chain {
		buf, err := d.decode(data)
		if err == nil {
			err = buf.Validate()
		}
		if err == nil {
			return buf, nil
		}
		attempts = append(attempts, fmt.Errorf("%s decoder: %w", d.name, err))
	}
	return nil, &MediaDecodeError{Extension: ext, Err: errors.Join(attempts...)}
}

// WAV fmt chunk audio format codes.
const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// decodeWAV reads integer PCM straight into int16 without a float round trip.
// 8, 16, 24 and 32-bit integer PCM and 32-bit IEEE float are accepted.
func decodeWAV(data []byte) (*AudioBuffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("invalid wav file: %w", err)
		}
		return nil, errors.New("invalid wav file")
	}

	channels, bitDepth, sampleRate := int(d.NumChans), int(d.BitDepth), int(d.SampleRate)
	if channels < 1 {
		return nil, fmt.Errorf("invalid wav channel count %d", channels)
	}
	toInt16, err := wavSampleConverter(d.WavAudioFormat, bitDepth)
	if err != nil {
		return nil, err
	}
	// header validation reads ahead; start again at the data chunk
	if err := d.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind wav: %w", err)
	}

	frameBytes := channels * bitDepth / 8
	samples := make([]int16, 0, len(data)/frameBytes)
	block := &audio.IntBuffer{Data: make([]int, mp3BlockFrames*channels)}
	var carry []int
	for {
		n, err := d.PCMBuffer(block)
		if err != nil {
			return nil, fmt.Errorf("read wav samples: %w", err)
		}
		if n == 0 {
			break
		}
		frame := append(carry, block.Data[:n]...)
		whole := len(frame) - len(frame)%channels
		for i := 0; i < whole; i += channels {
			var sum int
			for _, v := range frame[i : i+channels] {
				sum += int(toInt16(v))
			}
			samples = append(samples, int16(sum/channels))
		}
		carry = append(carry[:0], frame[whole:]...)
	}

	return &AudioBuffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}, nil
}

// wavSampleConverter maps one decoded sample of the given layout to int16.
func wavSampleConverter(format uint16, bitDepth int) (func(int) int16, error) {
	switch format {
	case wavFormatFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("unsupported float wav bit depth %d", bitDepth)
		}
		return func(v int) int16 {
			return FloatToInt16(float64(math.Float32frombits(uint32(int32(v)))))
		}, nil
	case wavFormatPCM, wavFormatExtensible:
	default:
		return nil, fmt.Errorf("unsupported wav audio format %#x", format)
	}

	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned
		return func(v int) int16 { return int16((v - 128) << 8) }, nil
	case 16:
		return func(v int) int16 { return int16(v) }, nil
	case 24:
		return func(v int) int16 { return int16(v >> 8) }, nil
	case 32:
		return func(v int) int16 { return int16(v >> 16) }, nil
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}
}

func decodeMP3(data []byte) (*AudioBuffer, error) {
	s, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return drain(s, format, mp3BlockFrames, s.Len())
}

// drain pulls fixed-size blocks out of s until it is exhausted, downmixing each
// float frame to mono int16. sizeHint preallocates when the length is known.
func drain(s beep.Streamer, format beep.Format, blockFrames, sizeHint int) (*AudioBuffer, error) {
	if blockFrames <= 0 {
		blockFrames = mp3BlockFrames
	}
	if sizeHint < 0 {
		sizeHint = 0
	}
	block := make([][2]float64, blockFrames)
	samples := make([]int16, 0, sizeHint)
	for {
		n, ok := s.Stream(block)
		for _, frame := range block[:n] {
			samples = append(samples, FloatToInt16(downmix(frame, format.NumChannels)))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return &AudioBuffer{
		Samples:    samples,
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

func downmix(frame [2]float64, channels int) float64 {
	if channels < 2 {
		return frame[0]
	}
	return (frame[0] + frame[1]) / 2
}
