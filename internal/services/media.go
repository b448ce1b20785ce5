package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	genaisdk "google.golang.org/genai"

	"solvencia-backend/internal/audio"
	"solvencia-backend/internal/telemetry"
)

// Podcast speakers and the prebuilt voices that read them.
var podcastVoices = []struct{ Speaker, Voice string }{
	{"Profesor", "Kore"},
	{"Alumna", "Puck"},
}

type Image struct {
	MIMEType string
	Data     []byte
}

func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Speech is raw PCM plus the format the model reported for it.
type Speech struct {
	PCM    []byte
	Format audio.Format
}

// MediaService talks to the image and speech models, which need the
// response-modality support of the newer SDK.
type MediaService struct {
	client     *genaisdk.Client
	imageModel string
	ttsModel   string
	sem        *semaphore.Weighted
}

func NewMediaService(ctx context.Context, apiKey, imageModel, ttsModel string, concurrentReqs int) (*MediaService, error) {
	client, err := genaisdk.NewClient(ctx, &genaisdk.ClientConfig{
		APIKey:  apiKey,
		Backend: genaisdk.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if concurrentReqs <= 0 {
		concurrentReqs = 1
	}

	return &MediaService{
		client:     client,
		imageModel: imageModel,
		ttsModel:   ttsModel,
		sem:        semaphore.NewWeighted(int64(concurrentReqs)),
	}, nil
}

// GenerateInfographic renders prompt as a technical infographic. It returns
// ErrNoImage when the model answers without image data.
func (s *MediaService) GenerateInfographic(ctx context.Context, prompt string) (*Image, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.imageModel, genaisdk.Text(InfographicPrompt(prompt)), nil)
	telemetry.ObserveLLM("infographic", start)
	if err != nil {
		return nil, classifyError(err)
	}

	for _, blob := range inlineParts(resp) {
		if blob.MIMEType != "" && !strings.HasPrefix(blob.MIMEType, "image/") {
			continue
		}
		mimeType := blob.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return &Image{MIMEType: mimeType, Data: blob.Data}, nil
	}
	return nil, ErrNoImage
}

// SynthesizePodcast voices script as a dialogue between the two podcast
// speakers. An empty PCM slice means the model returned no audio.
func (s *MediaService) SynthesizePodcast(ctx context.Context, script string) (*Speech, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	speakers := make([]*genaisdk.SpeakerVoiceConfig, 0, len(podcastVoices))
	for _, v := range podcastVoices {
		speakers = append(speakers, &genaisdk.SpeakerVoiceConfig{
			Speaker: v.Speaker,
			VoiceConfig: &genaisdk.VoiceConfig{
				PrebuiltVoiceConfig: &genaisdk.PrebuiltVoiceConfig{VoiceName: v.Voice},
			},
		})
	}

	config := &genaisdk.GenerateContentConfig{
		ResponseModalities: []string{string(genaisdk.ModalityAudio)},
		SpeechConfig: &genaisdk.SpeechConfig{
			MultiSpeakerVoiceConfig: &genaisdk.MultiSpeakerVoiceConfig{
				SpeakerVoiceConfigs: speakers,
			},
		},
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.ttsModel, genaisdk.Text(PodcastTTSPrompt(script)), config)
	telemetry.ObserveLLM("tts", start)
	if err != nil {
		return nil, classifyError(err)
	}

	speech := &Speech{Format: audio.SpeechFormat}
	for _, blob := range inlineParts(resp) {
		if len(speech.PCM) == 0 {
			speech.Format = formatFromMIME(blob.MIMEType)
		}
		speech.PCM = append(speech.PCM, blob.Data...)
	}
	return speech, nil
}

func inlineParts(resp *genaisdk.GenerateContentResponse) []*genaisdk.Blob {
	if resp == nil {
		return nil
	}
	var blobs []*genaisdk.Blob
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				blobs = append(blobs, part.InlineData)
			}
		}
	}
	return blobs
}

// formatFromMIME reads the sample rate from types like
// "audio/L16;codec=pcm;rate=24000", defaulting to the speech format.
func formatFromMIME(mimeType string) audio.Format {
	f := audio.SpeechFormat
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return f
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		f.SampleRate = rate
	}
	return f
}
