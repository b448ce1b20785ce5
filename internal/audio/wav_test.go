package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestWholeSamples(t *testing.T) {
	tests := []struct {
		name string
		pcm  int
		f    Format
		want int
	}{
		{"aligned mono", 8, SpeechFormat, 8},
		{"odd byte dropped", 7, SpeechFormat, 6},
		{"partial stereo frame", 10, Format{SampleRate: 8000, Channels: 2, BitsPerSample: 16}, 8},
		{"empty format untouched", 5, Format{}, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := WholeSamples(make([]byte, tc.pcm), tc.f)
			if len(got) != tc.want {
				t.Errorf("expected %d bytes, got %d", tc.want, len(got))
			}
		})
	}
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := make([]byte, 480)
	wav, err := EncodeWAV(pcm, SpeechFormat)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	if len(wav) != wavHeaderSize+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", wavHeaderSize+len(pcm), len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[12:16]) != "fmt " || string(wav[36:40]) != "data" {
		t.Fatal("malformed chunk ids")
	}

	le := binary.LittleEndian
	checks := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", le.Uint32(wav[4:8]), uint32(36 + len(pcm))},
		{"format", uint32(le.Uint16(wav[20:22])), 1},
		{"channels", uint32(le.Uint16(wav[22:24])), 1},
		{"sample rate", le.Uint32(wav[24:28]), 24000},
		{"byte rate", le.Uint32(wav[28:32]), 48000},
		{"block align", uint32(le.Uint16(wav[32:34])), 2},
		{"bits", uint32(le.Uint16(wav[34:36])), 16},
		{"data size", le.Uint32(wav[40:44]), uint32(len(pcm))},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: expected %d, got %d", c.name, c.want, c.got)
		}
	}
}

func TestEncodeWAV_Invalid(t *testing.T) {
	if _, err := EncodeWAV([]byte{1, 2, 3}, SpeechFormat); err == nil {
		t.Error("expected error for partial sample")
	}
	if _, err := EncodeWAV(nil, Format{SampleRate: 0, Channels: 1, BitsPerSample: 16}); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := EncodeWAV(nil, Format{SampleRate: 8000, Channels: 1, BitsPerSample: 12}); err == nil {
		t.Error("expected error for unsupported bit depth")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration(48000, SpeechFormat); got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
	if got := Duration(24000, SpeechFormat); got != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", got)
	}
	if got := Duration(100, Format{}); got != 0 {
		t.Errorf("expected 0 for empty format, got %v", got)
	}
}
