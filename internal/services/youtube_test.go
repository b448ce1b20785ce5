package services

import (
	"testing"

	yt "github.com/kkdai/youtube/v2"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url string
		id  string
		ok  bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?t=30", "dQw4w9WgXcQ", true},
		{"https://www.youtube.com/shorts/abcdefghijk", "abcdefghijk", true},
		{"https://www.youtube.com/live/abcdefghijk", "abcdefghijk", true},
		{"https://vimeo.com/123", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		id, ok := ExtractVideoID(tc.url)
		if id != tc.id || ok != tc.ok {
			t.Errorf("ExtractVideoID(%q) = %q, %v; want %q, %v", tc.url, id, ok, tc.id, tc.ok)
		}
	}
}

func TestPickCaptionTrack(t *testing.T) {
	tests := []struct {
		name   string
		tracks []yt.CaptionTrack
		want   string
		ok     bool
	}{
		{
			name: "uploaded Spanish beats auto-generated Spanish",
			tracks: []yt.CaptionTrack{
				{BaseURL: "https://example.com/en", LanguageCode: "en"},
				{BaseURL: "https://example.com/es-asr", LanguageCode: "es", Kind: "asr"},
				{BaseURL: "https://example.com/es", LanguageCode: "es-ES"},
			},
			want: "https://example.com/es",
			ok:   true,
		},
		{
			name: "auto-generated Spanish beats other languages",
			tracks: []yt.CaptionTrack{
				{BaseURL: "https://example.com/en", LanguageCode: "en"},
				{BaseURL: "https://example.com/es-asr", LanguageCode: "es", Kind: "asr"},
			},
			want: "https://example.com/es-asr",
			ok:   true,
		},
		{
			name:   "first usable track otherwise",
			tracks: []yt.CaptionTrack{{LanguageCode: "fr"}, {BaseURL: "https://example.com/de", LanguageCode: "de"}},
			want:   "https://example.com/de",
			ok:     true,
		},
		{name: "no tracks", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := pickCaptionTrack(tc.tracks)
			if ok != tc.ok || got.BaseURL != tc.want {
				t.Errorf("got %q, %v; want %q, %v", got.BaseURL, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestParseCaptionsXML(t *testing.T) {
	data := []byte(`<transcript><text start="0" dur="1">Hola &amp;amp; bienvenidos</text><text start="1" dur="1">  </text><text start="2" dur="1">al curso</text></transcript>`)

	got, err := parseCaptionsXML(data)
	if err != nil {
		t.Fatalf("parseCaptionsXML: %v", err)
	}
	if got != "Hola & bienvenidos al curso" {
		t.Errorf("unexpected transcript %q", got)
	}
}
