package media

import (
	"bytes"
	"encoding/binary"
	"math"
)

// wavBytes builds a 16-bit PCM WAV file. samples are interleaved when channels > 1.
func wavBytes(samples []int16, sampleRate, channels int) []byte {
	var data bytes.Buffer
	binary.Write(&data, binary.LittleEndian, samples)
	return wavFile(wavFormatPCM, 16, sampleRate, channels, data.Bytes())
}

// floatWAVBytes builds a 32-bit IEEE float WAV file.
func floatWAVBytes(samples []float32, sampleRate, channels int) []byte {
	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, math.Float32bits(s))
	}
	return wavFile(wavFormatFloat, 32, sampleRate, channels, data.Bytes())
}

// wavFile wraps raw little-endian sample data in a RIFF/WAVE container.
func wavFile(format uint16, bitDepth, sampleRate, channels int, data []byte) []byte {
	var buf bytes.Buffer
	blockAlign := uint16(channels * bitDepth / 8)

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(data)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, format)
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate)*uint32(blockAlign))
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, uint16(bitDepth))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	return buf.Bytes()
}
