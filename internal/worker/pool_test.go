package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"solvencia-backend/internal/audio"
	"solvencia-backend/internal/models"
	"solvencia-backend/internal/services"
)

type stubJobs struct {
	statuses []string
	lastErr  string
	retries  int
}

func (s *stubJobs) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubJobs) UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error {
	s.lastErr = errMsg
	s.retries = retryCount
	return nil
}

type stubPodcasts struct {
	podcast   *models.Podcast
	audioPath string
	script    string
	duration  int64
	completed bool
	failed    bool
}

func (s *stubPodcasts) GetByID(ctx context.Context, id uuid.UUID) (*models.Podcast, error) {
	if s.podcast == nil || s.podcast.ID != id {
		return nil, &services.NotFoundError{Message: "Podcast not found"}
	}
	return s.podcast, nil
}

func (s *stubPodcasts) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return nil
}

func (s *stubPodcasts) Complete(ctx context.Context, id uuid.UUID, audioPath, script string, durationMs int64) error {
	s.completed = true
	s.audioPath = audioPath
	s.script = script
	s.duration = durationMs
	return nil
}

func (s *stubPodcasts) Fail(ctx context.Context, id uuid.UUID) error {
	s.failed = true
	return nil
}

type stubWriter struct {
	script     string
	request    string
	history    []models.Message
	transcript string
	err        error
}

func (s *stubWriter) GeneratePodcastScript(ctx context.Context, request string, history []models.Message, branding models.Branding, docs []models.Document) (string, error) {
	s.request = request
	s.history = history
	return s.script, s.err
}

func (s *stubWriter) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	return s.transcript, nil
}

type stubSpeech struct {
	speech *services.Speech
}

func (s *stubSpeech) SynthesizePodcast(ctx context.Context, script string) (*services.Speech, error) {
	return s.speech, nil
}

type stubKnowledge struct {
	imported *models.Document
}

func (s *stubKnowledge) Documents(ctx context.Context) ([]models.Document, error) {
	return []models.Document{{ID: "doc-1", Name: "Tema 1", Content: "Activo corriente"}}, nil
}

func (s *stubKnowledge) Branding(ctx context.Context) (*models.Branding, error) {
	b := models.DefaultBranding()
	return &b, nil
}

func (s *stubKnowledge) ImportText(ctx context.Context, name, content, source string) (*models.Document, error) {
	s.imported = &models.Document{ID: "custom-1", Name: name, Content: content, Source: source}
	return s.imported, nil
}

type stubHistory struct {
	recent   []models.Message
	appended []models.Message
}

func (s *stubHistory) Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]models.Message, error) {
	if len(s.recent) > n {
		return s.recent[len(s.recent)-n:], nil
	}
	return s.recent, nil
}

func (s *stubHistory) Append(ctx context.Context, sessionID uuid.UUID, msgs ...models.Message) error {
	s.appended = append(s.appended, msgs...)
	return nil
}

type stubVideos struct {
	transcript string
	transcErr  error
	downloaded bool
	title      string
}

func (s *stubVideos) GetTranscript(videoID string) (string, error) {
	return s.transcript, s.transcErr
}

func (s *stubVideos) DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error) {
	s.downloaded = true
	return []byte("audio"), "audio/mp4", nil
}

func (s *stubVideos) GetVideoTitle(ctx context.Context, videoID string) (string, error) {
	if s.title == "" {
		return "", errors.New("no title")
	}
	return s.title, nil
}

func newPodcastJob(t *testing.T, podcasts *stubPodcasts) *models.Job {
	t.Helper()
	podcasts.podcast = &models.Podcast{ID: uuid.New(), SessionID: uuid.New(), Topic: "Balance"}
	return &models.Job{
		ID:          uuid.New(),
		SessionID:   podcasts.podcast.SessionID,
		Type:        models.JobPodcastGeneration,
		ReferenceID: podcasts.podcast.ID.String(),
	}
}

func TestProcessPodcastWritesWAV(t *testing.T) {
	podcasts := &stubPodcasts{}
	history := &stubHistory{}
	jobs := &stubJobs{}
	pcm := make([]byte, 48000) // one second at 24kHz mono 16-bit
	p := NewPool(nil, Deps{
		Jobs:      jobs,
		Podcasts:  podcasts,
		Writer:    &stubWriter{script: "Profesor: Hola. Alumna: Hola."},
		Speech:    &stubSpeech{speech: &services.Speech{PCM: pcm, Format: audio.SpeechFormat}},
		Knowledge: &stubKnowledge{},
		History:   history,
	}, t.TempDir(), 5, 1)

	job := newPodcastJob(t, podcasts)
	p.process(context.Background(), job)

	if !podcasts.completed {
		t.Fatal("expected podcast to be completed")
	}
	if podcasts.duration != 1000 {
		t.Errorf("expected 1000ms, got %d", podcasts.duration)
	}
	data, err := os.ReadFile(podcasts.audioPath)
	if err != nil {
		t.Fatalf("expected wav on disk: %v", err)
	}
	if len(data) != 44+len(pcm) || string(data[:4]) != "RIFF" {
		t.Errorf("unexpected wav layout, %d bytes", len(data))
	}
	if !strings.HasSuffix(podcasts.audioPath, podcasts.podcast.ID.String()+".wav") {
		t.Errorf("unexpected path %s", podcasts.audioPath)
	}
	if len(history.appended) != 1 || history.appended[0].Type != models.ModePodcast {
		t.Errorf("expected one podcast message in history, got %+v", history.appended)
	}
	if jobs.statuses[len(jobs.statuses)-1] != "completed" {
		t.Errorf("expected completed job, got %v", jobs.statuses)
	}
}

func TestProcessPodcastWithoutAudioFallsBack(t *testing.T) {
	podcasts := &stubPodcasts{}
	history := &stubHistory{}
	p := NewPool(nil, Deps{
		Jobs:      &stubJobs{},
		Podcasts:  podcasts,
		Writer:    &stubWriter{script: "El balance resume el patrimonio."},
		Speech:    &stubSpeech{speech: &services.Speech{Format: audio.SpeechFormat}},
		Knowledge: &stubKnowledge{},
		History:   history,
	}, t.TempDir(), 5, 1)

	job := newPodcastJob(t, podcasts)
	if err := p.processPodcast(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if podcasts.audioPath != "" {
		t.Errorf("expected no audio, got %s", podcasts.audioPath)
	}
	if podcasts.script != "Resumen: El balance resume el patrimonio." {
		t.Errorf("unexpected fallback script %q", podcasts.script)
	}
	if len(history.appended) != 1 || history.appended[0].Text != podcasts.script {
		t.Errorf("expected fallback text in history, got %+v", history.appended)
	}
}

func TestProcessPodcastUsesConfiguredTopic(t *testing.T) {
	podcasts := &stubPodcasts{}
	writer := &stubWriter{script: "guion"}
	p := NewPool(nil, Deps{
		Jobs:      &stubJobs{},
		Podcasts:  podcasts,
		Writer:    writer,
		Speech:    &stubSpeech{},
		Knowledge: &stubKnowledge{},
		History:   &stubHistory{},
	}, t.TempDir(), 5, 1)

	job := newPodcastJob(t, podcasts)
	job.ConfigJSON, _ = json.Marshal(models.PodcastJobConfig{Topic: "Amortizaciones"})
	if err := p.processPodcast(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.request != "Resumen para podcast sobre: Amortizaciones" {
		t.Errorf("expected the tool prompt for the configured topic, got %q", writer.request)
	}
}

func TestProcessPodcastUsesRequestSnapshot(t *testing.T) {
	podcasts := &stubPodcasts{}
	writer := &stubWriter{script: "guion"}
	later := &stubHistory{recent: []models.Message{{Role: models.RoleUser, Text: "otra pregunta posterior"}}}
	p := NewPool(nil, Deps{
		Jobs:      &stubJobs{},
		Podcasts:  podcasts,
		Writer:    writer,
		Speech:    &stubSpeech{},
		Knowledge: &stubKnowledge{},
		History:   later,
	}, t.TempDir(), 5, 1)

	snapshot := []models.Message{{Role: models.RoleModel, Text: "Hola, soy SolvencIA."}}
	job := newPodcastJob(t, podcasts)
	job.ConfigJSON, _ = json.Marshal(models.PodcastJobConfig{
		Topic:   "IVA",
		Prompt:  "Resumen para podcast sobre: IVA",
		History: snapshot,
	})
	if err := p.processPodcast(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if writer.request != "Resumen para podcast sobre: IVA" {
		t.Errorf("unexpected script request %q", writer.request)
	}
	if len(writer.history) != 1 || writer.history[0].Text != snapshot[0].Text {
		t.Errorf("expected the history captured with the request, got %+v", writer.history)
	}
}

func TestHistoryBeforeDropsStoredRequest(t *testing.T) {
	request := "Resumen para podcast sobre: IVA"
	history := &stubHistory{recent: []models.Message{
		{Role: models.RoleModel, Text: "saludo"},
		{Role: models.RoleUser, Text: "¿Qué es el IVA?"},
		{Role: models.RoleModel, Text: "Un impuesto."},
		{Role: models.RoleUser, Text: request},
	}}
	p := NewPool(nil, Deps{History: history}, t.TempDir(), 2, 1)

	got := p.historyBefore(context.Background(), uuid.New(), request)
	if len(got) != 2 {
		t.Fatalf("expected the window before the request, got %+v", got)
	}
	if got[1].Role != models.RoleModel || got[1].Text != "Un impuesto." {
		t.Errorf("the last turn sent must not be the request itself, got %+v", got[1])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Role == models.RoleUser && got[i-1].Role == models.RoleUser {
			t.Error("consecutive user turns")
		}
	}
}

func TestPodcastFailureMarksRecordFailed(t *testing.T) {
	podcasts := &stubPodcasts{}
	jobs := &stubJobs{}
	p := NewPool(nil, Deps{
		Jobs:      jobs,
		Podcasts:  podcasts,
		Writer:    &stubWriter{err: &services.InvalidAPIKeyError{Err: errors.New("bad key")}},
		Speech:    &stubSpeech{},
		Knowledge: &stubKnowledge{},
		History:   &stubHistory{},
	}, t.TempDir(), 5, 1)

	job := newPodcastJob(t, podcasts)
	p.process(context.Background(), job)

	if !podcasts.failed {
		t.Error("expected podcast to be marked failed")
	}
	if jobs.statuses[len(jobs.statuses)-1] != "failed" {
		t.Errorf("expected failed status, got %v", jobs.statuses)
	}
	if jobs.retries != 1 {
		t.Errorf("expected retry count 1, got %d", jobs.retries)
	}
}

func TestHandleFailureRetriesTransientErrors(t *testing.T) {
	jobs := &stubJobs{}
	p := NewPool(nil, Deps{Jobs: jobs, Podcasts: &stubPodcasts{}}, t.TempDir(), 5, 1)

	job := &models.Job{ID: uuid.New(), Type: models.JobKnowledgeImport, MaxRetries: 3}
	p.handleFailure(context.Background(), job, errors.New("timeout"))

	if jobs.statuses[len(jobs.statuses)-1] != "pending" {
		t.Errorf("expected pending after first failure, got %v", jobs.statuses)
	}

	job.RetryCount = 2
	p.handleFailure(context.Background(), job, errors.New("timeout"))
	if jobs.statuses[len(jobs.statuses)-1] != "failed" {
		t.Errorf("expected failed on last attempt, got %v", jobs.statuses)
	}
}

func TestProcessImportFallsBackToAudio(t *testing.T) {
	knowledge := &stubKnowledge{}
	videos := &stubVideos{transcErr: errors.New("no captions"), title: "Clase de Consolidación"}
	p := NewPool(nil, Deps{
		Jobs:      &stubJobs{},
		Writer:    &stubWriter{transcript: "Hoy vemos la consolidación de estados financieros."},
		Knowledge: knowledge,
		Videos:    videos,
	}, t.TempDir(), 5, 1)

	cfg, _ := json.Marshal(models.ImportJobConfig{URL: "https://youtu.be/dQw4w9WgXcQ"})
	job := &models.Job{ID: uuid.New(), Type: models.JobKnowledgeImport, ConfigJSON: cfg}
	if err := p.processImport(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !videos.downloaded {
		t.Error("expected audio download fallback")
	}
	if knowledge.imported == nil || knowledge.imported.Name != "Clase de Consolidación" {
		t.Fatalf("expected document named after the video, got %+v", knowledge.imported)
	}
	if knowledge.imported.Source != models.SourceYouTube {
		t.Errorf("expected youtube source, got %s", knowledge.imported.Source)
	}
	if job.ReferenceID != "custom-1" {
		t.Errorf("expected reference to the new document, got %s", job.ReferenceID)
	}
}

func TestProcessImportRejectsBadURL(t *testing.T) {
	p := NewPool(nil, Deps{Jobs: &stubJobs{}, Videos: &stubVideos{}}, t.TempDir(), 5, 1)

	cfg, _ := json.Marshal(models.ImportJobConfig{URL: "https://example.com/video"})
	err := p.processImport(context.Background(), &models.Job{ConfigJSON: cfg})

	var vErr *services.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if retryable(err) {
		t.Error("validation errors must not be retried")
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestQueueNames(t *testing.T) {
	if jobQueueName(models.JobPodcastGeneration) != QueuePodcastGeneration {
		t.Error("podcast queue mismatch")
	}
	if jobQueueName(models.JobKnowledgeImport) != QueueKnowledgeImport {
		t.Error("import queue mismatch")
	}
	if errorCode(&services.AIError{Err: errors.New("x")}) != "AI_ERROR" {
		t.Error("expected AI_ERROR code")
	}
}

func TestProcessPodcastTrimsPartialSample(t *testing.T) {
	podcasts := &stubPodcasts{}
	pcm := make([]byte, 48001)
	p := NewPool(nil, Deps{
		Jobs:      &stubJobs{},
		Podcasts:  podcasts,
		Writer:    &stubWriter{script: "guion"},
		Speech:    &stubSpeech{speech: &services.Speech{PCM: pcm, Format: audio.SpeechFormat}},
		Knowledge: &stubKnowledge{},
		History:   &stubHistory{},
	}, t.TempDir(), 5, 1)

	job := newPodcastJob(t, podcasts)
	if err := p.processPodcast(context.Background(), job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(podcasts.audioPath)
	if err != nil {
		t.Fatalf("expected wav on disk: %v", err)
	}
	if len(data) != 44+48000 || podcasts.duration != 1000 {
		t.Errorf("expected the odd byte dropped, got %d bytes and %dms", len(data), podcasts.duration)
	}
}
