package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"solvencia-backend/internal/audio"
	"solvencia-backend/internal/models"
	"solvencia-backend/internal/services"
)

// historyBefore loads the recent turns for jobs queued without a snapshot,
// leaving out the request turn the chat handler already stored.
func (p *Pool) historyBefore(ctx context.Context, sessionID uuid.UUID, request string) []models.Message {
	history, err := p.deps.History.Recent(ctx, sessionID, p.historyWindow+1)
	if err != nil {
		log.Printf("failed to load history for session %s: %v", sessionID, err)
		return nil
	}
	if n := len(history); n > 0 && history[n-1].Role == models.RoleUser && history[n-1].Text == request {
		return history[:n-1]
	}
	if len(history) > p.historyWindow {
		history = history[len(history)-p.historyWindow:]
	}
	return history
}

func (p *Pool) processPodcast(ctx context.Context, job *models.Job) error {
	podcastID, err := uuid.Parse(job.ReferenceID)
	if err != nil {
		return &services.ValidationError{Fields: map[string]string{"reference_id": "invalid podcast id"}}
	}

	podcast, err := p.deps.Podcasts.GetByID(ctx, podcastID)
	if err != nil {
		return fmt.Errorf("failed to get podcast: %w", err)
	}
	p.deps.Podcasts.SetStatus(ctx, podcast.ID, "processing")

	var cfg models.PodcastJobConfig
	if len(job.ConfigJSON) > 0 {
		if err := json.Unmarshal(job.ConfigJSON, &cfg); err != nil {
			log.Printf("ignoring malformed podcast config for job %s: %v", job.ID, err)
		}
	}
	request := strings.TrimSpace(cfg.Prompt)
	if request == "" {
		topic := podcast.Topic
		if strings.TrimSpace(cfg.Topic) != "" {
			topic = cfg.Topic
		}
		request = services.ToolPrompt(models.ModePodcast, topic)
	}

	p.publishStep(ctx, job, 1, "Writing script")

	docs, err := p.deps.Knowledge.Documents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	branding := models.DefaultBranding()
	if b, err := p.deps.Knowledge.Branding(ctx); err == nil {
		branding = *b
	}
	history := cfg.History
	if history == nil {
		history = p.historyBefore(ctx, job.SessionID, request)
	}

	script, err := p.deps.Writer.GeneratePodcastScript(ctx, request, history, branding, docs)
	if err != nil {
		return err
	}

	p.publishStep(ctx, job, 2, "Synthesizing audio")

	speech, err := p.deps.Speech.SynthesizePodcast(ctx, script)
	if err != nil {
		return err
	}

	if speech == nil || len(speech.PCM) == 0 {
		fallback := services.PodcastFallbackText(script)
		if err := p.deps.Podcasts.Complete(ctx, podcast.ID, "", fallback, 0); err != nil {
			return fmt.Errorf("failed to complete podcast: %w", err)
		}
		p.appendReply(ctx, job.SessionID, models.Message{Role: models.RoleModel, Text: fallback})
		return nil
	}

	p.publishStep(ctx, job, 3, "Packaging audio")

	path, durationMs, err := p.writeWAV(podcast.ID, speech)
	if err != nil {
		return err
	}
	if err := p.deps.Podcasts.Complete(ctx, podcast.ID, path, script, durationMs); err != nil {
		return fmt.Errorf("failed to complete podcast: %w", err)
	}

	data, _ := json.Marshal(map[string]interface{}{
		"podcast_id":  podcast.ID,
		"duration_ms": durationMs,
	})
	p.appendReply(ctx, job.SessionID, models.Message{
		Role: models.RoleModel,
		Text: services.PodcastReadyText,
		Type: models.ModePodcast,
		Data: data,
	})
	return nil
}

// writeWAV stores the speech under STORAGE_PATH/podcasts/<id>.wav.
func (p *Pool) writeWAV(id uuid.UUID, speech *services.Speech) (string, int64, error) {
	pcm := audio.WholeSamples(speech.PCM, speech.Format)

	wav, err := audio.EncodeWAV(pcm, speech.Format)
	if err != nil {
		return "", 0, fmt.Errorf("failed to encode wav: %w", err)
	}

	dir := filepath.Join(p.storagePath, "podcasts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create podcast directory: %w", err)
	}

	path := filepath.Join(dir, id.String()+".wav")
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write podcast audio: %w", err)
	}

	return path, audio.Duration(len(pcm), speech.Format).Milliseconds(), nil
}

func (p *Pool) appendReply(ctx context.Context, sessionID uuid.UUID, msg models.Message) {
	if err := p.deps.History.Append(ctx, sessionID, msg); err != nil {
		log.Printf("failed to append podcast reply for session %s: %v", sessionID, err)
	}
}

func (p *Pool) processImport(ctx context.Context, job *models.Job) error {
	var cfg models.ImportJobConfig
	if err := json.Unmarshal(job.ConfigJSON, &cfg); err != nil {
		return &services.ValidationError{Fields: map[string]string{"config": "invalid import config"}}
	}

	videoID, ok := services.ExtractVideoID(cfg.URL)
	if !ok {
		return &services.ValidationError{Fields: map[string]string{"url": "not a YouTube URL"}}
	}

	p.publishStep(ctx, job, 1, "Fetching transcript")

	transcript, err := p.deps.Videos.GetTranscript(videoID)
	if err != nil || strings.TrimSpace(transcript) == "" {
		log.Printf("Transcript unavailable for %s, falling back to audio: %v", videoID, err)
		p.publishStep(ctx, job, 2, "Transcribing audio")

		audioBytes, mimeType, dlErr := p.deps.Videos.DownloadAudio(ctx, cfg.URL)
		if dlErr != nil {
			return fmt.Errorf("failed to download audio: %w", dlErr)
		}
		transcript, err = p.deps.Writer.TranscribeAudio(ctx, audioBytes, mimeType)
		if err != nil {
			return err
		}
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		if title, err := p.deps.Videos.GetVideoTitle(ctx, videoID); err == nil {
			name = title
		} else {
			name = "Clase " + videoID
		}
	}

	p.publishStep(ctx, job, 3, "Saving document")

	doc, err := p.deps.Knowledge.ImportText(ctx, name, transcript, models.SourceYouTube)
	if err != nil {
		return err
	}
	job.ReferenceID = doc.ID
	return nil
}
