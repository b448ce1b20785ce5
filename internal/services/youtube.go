package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
)

type YouTubeService struct {
	httpClient    *http.Client
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

// captionsXML is the timedtext document: one <text> element per cue.
type captionsXML struct {
	Cues []string `xml:"text"`
}

var youtubeRegex = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|embed/|shorts/|live/)|youtu\.be/)([\w-]{11})`)

// Lectures are recorded in Spanish; any other track is a last resort.
var transcriptLanguages = []string{"es", "es-ES", "es-419"}

// ExtractVideoID returns the 11-character video ID of a YouTube URL.
func ExtractVideoID(url string) (string, bool) {
	matches := youtubeRegex.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

// GetTranscript fetches the captions of a lecture video, preferring Spanish.
func (s *YouTubeService) GetTranscript(videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, transcriptLanguages)
	if err != nil {
		// Fallback: request any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			fromTracks, trackErr := s.captionTrackTranscript(videoID)
			if trackErr == nil {
				return fromTracks, nil
			}
			return "", fmt.Errorf("no subtitles available via transcript API (%v) and caption track fallback failed (%v)", err, trackErr)
		}
	}

	if len(transcript.Entries) == 0 {
		return "", fmt.Errorf("subtitle track is empty")
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", fmt.Errorf("subtitle text resolved to empty content")
	}

	return cleaned, nil
}

// captionTrackTranscript reads the caption tracks listed in the video
// metadata and downloads the best one as timedtext XML.
func (s *YouTubeService) captionTrackTranscript(videoID string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	track, ok := pickCaptionTrack(video.CaptionTracks)
	if !ok {
		return "", fmt.Errorf("no captions available for this video")
	}
	log.Printf("Caption fallback: using %s track (%s) for %s", track.LanguageCode, trackKind(track), videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch captions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("captions request returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read captions: %w", err)
	}

	transcript, err := parseCaptionsXML(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse captions XML: %w", err)
	}
	return transcript, nil
}

// pickCaptionTrack ranks Spanish uploaded captions first, then Spanish
// auto-generated ones, then whatever track comes first.
func pickCaptionTrack(tracks []yt.CaptionTrack) (yt.CaptionTrack, bool) {
	best, bestRank := yt.CaptionTrack{}, -1
	for _, t := range tracks {
		if t.BaseURL == "" {
			continue
		}
		rank := 0
		if strings.HasPrefix(strings.ToLower(t.LanguageCode), "es") {
			rank = 1
			if t.Kind != "asr" {
				rank = 2
			}
		}
		if rank > bestRank {
			best, bestRank = t, rank
		}
	}
	return best, bestRank >= 0
}

func trackKind(t yt.CaptionTrack) string {
	if t.Kind == "asr" {
		return "auto-generated"
	}
	return "uploaded"
}

func parseCaptionsXML(data []byte) (string, error) {
	var doc captionsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cue := range doc.Cues {
		line := strings.TrimSpace(html.UnescapeString(cue))
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(line)
	}

	if b.Len() == 0 {
		return "", fmt.Errorf("captions XML empty")
	}
	return b.String(), nil
}

// DownloadAudio downloads the best available audio-only stream for a YouTube URL.
func (s *YouTubeService) DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, "", fmt.Errorf("no audio formats available")
	}

	best := formats[0]
	for _, f := range formats {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	stream, _, err := s.ytClient.GetStreamContext(ctx, video, &best)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer stream.Close()

	const maxAudioBytes = 100 * 1024 * 1024 // 100MB safety cap
	limited := io.LimitReader(stream, maxAudioBytes+1)
	audioBytes, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audio stream: %w", err)
	}
	if len(audioBytes) > maxAudioBytes {
		return nil, "", fmt.Errorf("audio stream exceeds %d MB limit", maxAudioBytes/(1024*1024))
	}

	mimeType := strings.TrimSpace(strings.Split(best.MimeType, ";")[0])
	if mimeType == "" {
		mimeType = "audio/mp4"
	}

	return audioBytes, mimeType, nil
}

// GetVideoTitle is used to name imported lectures when the admin gave no name.
func (s *YouTubeService) GetVideoTitle(ctx context.Context, videoID string) (string, error) {
	video, err := s.ytClient.GetVideoContext(ctx, videoID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch YouTube video metadata: %w", err)
	}
	title := strings.TrimSpace(video.Title)
	if title == "" {
		return "", fmt.Errorf("video %s has no title", videoID)
	}
	return title, nil
}
