// Package audio converts the raw PCM returned by the speech model into
// playable WAV files.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

const wavHeaderSize = 44

// Format describes interleaved little-endian signed PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// SpeechFormat is what the TTS model emits: s16le, 24 kHz, mono.
var SpeechFormat = Format{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

func (f Format) blockAlign() int { return f.Channels * f.BitsPerSample / 8 }
func (f Format) byteRate() int   { return f.SampleRate * f.blockAlign() }

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("invalid audio format %+v", f)
	}
	if f.BitsPerSample != 8 && f.BitsPerSample != 16 && f.BitsPerSample != 24 && f.BitsPerSample != 32 {
		return fmt.Errorf("unsupported bits per sample: %d", f.BitsPerSample)
	}
	return nil
}

// WholeSamples drops a trailing partial frame so pcm can be encoded as f.
func WholeSamples(pcm []byte, f Format) []byte {
	block := f.blockAlign()
	if block <= 0 {
		return pcm
	}
	return pcm[:len(pcm)-len(pcm)%block]
}

// EncodeWAV prefixes pcm with a canonical RIFF/WAVE header.
func EncodeWAV(pcm []byte, f Format) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if len(pcm)%f.blockAlign() != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of block size %d", len(pcm), f.blockAlign())
	}

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(f.byteRate()))
	binary.Write(&buf, binary.LittleEndian, uint16(f.blockAlign()))
	binary.Write(&buf, binary.LittleEndian, uint16(f.BitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// Duration is the playback length of pcmLen bytes in format f.
func Duration(pcmLen int, f Format) time.Duration {
	rate := f.byteRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(int64(pcmLen) * int64(time.Second) / int64(rate))
}
