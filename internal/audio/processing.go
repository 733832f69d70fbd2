// Package audio decodes synthesized speech payloads into normalized sample
// buffers, stitches them together and encodes the result as a WAV file.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-audio/wav"
)

// Output format of every assembled episode.
const (
	DefaultSampleRate = 24000
	DefaultChannels   = 1
	DefaultBitDepth   = 16
	DefaultSilence    = 500 * time.Millisecond
)

// WAV container layout.
const (
	HeaderSize     = 44
	bytesPerSample = DefaultBitDepth / 8
	fmtChunkSize   = 16
	pcmAudioFormat = 1
	maxSampleRate  = 192000
	riffMagic      = "RIFF"
)

// Quantization scales for 16-bit signed samples.
const (
	negativeScale = 32768.0
	positiveScale = 32767.0
)

const (
	errFmtSampleRateRange = "%w: sample rate must be between 1 and %d Hz, got %d"
	errFmtRateMismatch    = "%w: buffer %d is %d Hz, expected %d Hz"
	errFmtOddPayload      = "%w: %d bytes"
	errFmtWAVLayout       = "%w: %d-bit, %d channel(s) at %d Hz"
	errFmtWAVDecode       = "failed to decode wav payload: %w"
)

// Common errors for the audio package.
var (
	ErrInvalidFormat      = errors.New("invalid audio format")
	ErrOddPayload         = errors.New("pcm payload is not 16-bit aligned")
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
	ErrInvalidWAV         = errors.New("payload is not a valid wav file")
)

// Buffer is mono audio at a fixed sample rate, with samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Samples    []float64
}

// Duration reports the playing time of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}

	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// DecodePCM16 interprets data as little-endian signed 16-bit mono PCM.
func DecodePCM16(data []byte, sampleRate int) (Buffer, error) {
	rateErr := validateSampleRate(sampleRate)
	if rateErr != nil {
		return Buffer{}, rateErr
	}

	if len(data)%bytesPerSample != 0 {
		return Buffer{}, fmt.Errorf(errFmtOddPayload, ErrOddPayload, len(data))
	}

	samples := make([]float64, len(data)/bytesPerSample)
	for i := range samples {
		value := int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:]))
		samples[i] = float64(value) / negativeScale
	}

	return Buffer{SampleRate: sampleRate, Samples: samples}, nil
}

// DecodePayload accepts either raw PCM or a RIFF/WAV container. A container
// must hold 16-bit mono audio at sampleRate.
func DecodePayload(data []byte, sampleRate int) (Buffer, error) {
	if !bytes.HasPrefix(data, []byte(riffMagic)) {
		return DecodePCM16(data, sampleRate)
	}

	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return Buffer{}, ErrInvalidWAV
	}

	if int(decoder.BitDepth) != DefaultBitDepth || int(decoder.NumChans) != DefaultChannels ||
		int(decoder.SampleRate) != sampleRate {
		return Buffer{}, fmt.Errorf(errFmtWAVLayout, ErrInvalidFormat,
			decoder.BitDepth, decoder.NumChans, decoder.SampleRate)
	}

	pcm, decodeErr := decoder.FullPCMBuffer()
	if decodeErr != nil {
		return Buffer{}, fmt.Errorf(errFmtWAVDecode, decodeErr)
	}

	samples := make([]float64, len(pcm.Data))
	for i, value := range pcm.Data {
		samples[i] = float64(value) / negativeScale
	}

	return Buffer{SampleRate: sampleRate, Samples: samples}, nil
}

// Silence returns a buffer of zeros lasting d.
func Silence(d time.Duration, sampleRate int) Buffer {
	count := int(int64(d) * int64(sampleRate) / int64(time.Second))

	return Buffer{SampleRate: sampleRate, Samples: make([]float64, max(count, 0))}
}

// Assemble concatenates padding, every buffer in order, then padding again.
// All buffers must share the padding's sample rate.
func Assemble(buffers []Buffer, padding Buffer) (Buffer, error) {
	rateErr := validateSampleRate(padding.SampleRate)
	if rateErr != nil {
		return Buffer{}, rateErr
	}

	total := 2 * len(padding.Samples)

	for i, buffer := range buffers {
		if buffer.SampleRate != padding.SampleRate {
			return Buffer{}, fmt.Errorf(errFmtRateMismatch, ErrSampleRateMismatch,
				i, buffer.SampleRate, padding.SampleRate)
		}

		total += len(buffer.Samples)
	}

	samples := make([]float64, 0, total)
	samples = append(samples, padding.Samples...)

	for _, buffer := range buffers {
		samples = append(samples, buffer.Samples...)
	}

	samples = append(samples, padding.Samples...)

	return Buffer{SampleRate: padding.SampleRate, Samples: samples}, nil
}

// EncodeWAV serializes buf as a canonical 44-byte-header PCM WAV file.
func EncodeWAV(buf Buffer) []byte {
	dataSize := len(buf.Samples) * DefaultChannels * bytesPerSample
	out := make([]byte, HeaderSize, HeaderSize+dataSize)

	copy(out[0:4], riffMagic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(HeaderSize-8+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(out[20:22], pcmAudioFormat)
	binary.LittleEndian.PutUint16(out[22:24], DefaultChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(buf.SampleRate*DefaultChannels*bytesPerSample))
	binary.LittleEndian.PutUint16(out[32:34], DefaultChannels*bytesPerSample)
	binary.LittleEndian.PutUint16(out[34:36], DefaultBitDepth)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for _, sample := range buf.Samples {
		out = binary.LittleEndian.AppendUint16(out, uint16(Quantize(sample)))
	}

	return out
}

// Quantize clamps sample to [-1, 1] and scales it to a signed 16-bit value.
// Fractions are truncated toward zero and NaN becomes silence.
func Quantize(sample float64) int16 {
	if math.IsNaN(sample) {
		return 0
	}

	clamped := min(max(sample, -1), 1)

	if clamped < 0 {
		return int16(clamped * negativeScale)
	}

	return int16(clamped * positiveScale)
}

func validateSampleRate(sampleRate int) error {
	if sampleRate <= 0 || sampleRate > maxSampleRate {
		return fmt.Errorf(errFmtSampleRateRange, ErrInvalidFormat, maxSampleRate, sampleRate)
	}

	return nil
}
