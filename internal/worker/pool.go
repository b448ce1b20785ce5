package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"solvencia-backend/internal/models"
	"solvencia-backend/internal/services"
	"solvencia-backend/internal/telemetry"
	"solvencia-backend/internal/websocket"
)

const (
	QueuePodcastGeneration = "queue:podcast-generation"
	QueueKnowledgeImport   = "queue:knowledge-import"

	maxAttempts = 3
	lockTTL     = 10 * time.Minute
	popTimeout  = 30 * time.Second
)

type JobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
}

type PodcastStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Podcast, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Complete(ctx context.Context, id uuid.UUID, audioPath, script string, durationMs int64) error
	Fail(ctx context.Context, id uuid.UUID) error
}

type ScriptWriter interface {
	GeneratePodcastScript(ctx context.Context, request string, history []models.Message, branding models.Branding, docs []models.Document) (string, error)
	TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type SpeechSynthesizer interface {
	SynthesizePodcast(ctx context.Context, script string) (*services.Speech, error)
}

type Knowledge interface {
	Documents(ctx context.Context) ([]models.Document, error)
	Branding(ctx context.Context) (*models.Branding, error)
	ImportText(ctx context.Context, name, content, source string) (*models.Document, error)
}

type History interface {
	Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]models.Message, error)
	Append(ctx context.Context, sessionID uuid.UUID, msgs ...models.Message) error
}

type VideoSource interface {
	GetTranscript(videoID string) (string, error)
	DownloadAudio(ctx context.Context, videoURL string) ([]byte, string, error)
	GetVideoTitle(ctx context.Context, videoID string) (string, error)
}

// Deps groups what the job handlers call into.
type Deps struct {
	Jobs      JobStore
	Podcasts  PodcastStore
	Writer    ScriptWriter
	Speech    SpeechSynthesizer
	Knowledge Knowledge
	History   History
	Videos    VideoSource
}

type Pool struct {
	redis         *redis.Client
	deps          Deps
	storagePath   string
	historyWindow int
	workerCount   int
	stopChan      chan struct{}
}

func NewPool(redisClient *redis.Client, deps Deps, storagePath string, historyWindow, workerCount int) *Pool {
	return &Pool{
		redis:         redisClient,
		deps:          deps,
		storagePath:   storagePath,
		historyWindow: historyWindow,
		workerCount:   workerCount,
		stopChan:      make(chan struct{}),
	}
}

// Queue is the producer side of the job queues.
type Queue struct {
	redis *redis.Client
}

func NewQueue(redisClient *redis.Client) *Queue {
	return &Queue{redis: redisClient}
}

// Enqueue pushes a job onto the queue for its type.
func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.redis.LPush(ctx, jobQueueName(job.Type), string(jobBytes)).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

func (p *Pool) Start() {
	queues := []string{QueuePodcastGeneration, QueueKnowledgeImport}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, popTimeout, queues...).Result()
		if err != nil {
			continue // timeout or connection error
		}
		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue // another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)
		p.process(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) process(ctx context.Context, job *models.Job) {
	p.deps.Jobs.UpdateStatus(ctx, job.ID, "processing")

	var processErr error
	switch job.Type {
	case models.JobPodcastGeneration:
		processErr = p.processPodcast(ctx, job)
	case models.JobKnowledgeImport:
		processErr = p.processImport(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.Type)
	}

	telemetry.RecordJob(job.Type, processErr)
	if processErr != nil {
		p.handleFailure(ctx, job, processErr)
	} else {
		p.handleSuccess(ctx, job)
	}
}

func (p *Pool) publishStep(ctx context.Context, job *models.Job, step int, name string) {
	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Step:     step,
			StepName: name,
		},
	})
}

func (p *Pool) publish(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	if p.redis == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := p.redis.Publish(ctx, websocket.SessionChannel(sessionID), string(data)).Err(); err != nil {
		log.Printf("failed to publish update for session %s: %v", sessionID, err)
	}
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job) {
	p.deps.Jobs.UpdateStatus(ctx, job.ID, "completed")

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   job.ReferenceID,
			ResultType: getResultType(job.Type),
		},
	})

	log.Printf("Job %s completed successfully", job.ID)
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()

	limit := job.MaxRetries
	if limit <= 0 {
		limit = maxAttempts
	}

	if job.RetryCount < limit && retryable(err) {
		log.Printf("Job %s failed (attempt %d): %s, retrying", job.ID, job.RetryCount, errMsg)
		p.deps.Jobs.UpdateStatus(ctx, job.ID, "pending")
		p.deps.Jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		if p.redis == nil {
			return
		}
		retry := *job
		time.AfterFunc(backoff(job.RetryCount), func() {
			if err := NewQueue(p.redis).Enqueue(context.Background(), &retry); err != nil {
				log.Printf("failed to requeue job %s: %v", retry.ID, err)
			}
		})
		return
	}

	log.Printf("Job %s failed permanently: %s", job.ID, errMsg)
	p.deps.Jobs.UpdateStatus(ctx, job.ID, "failed")
	p.deps.Jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)
	if job.Type == models.JobPodcastGeneration {
		if id, parseErr := uuid.Parse(job.ReferenceID); parseErr == nil {
			p.deps.Podcasts.Fail(ctx, id)
		}
	}

	p.publish(ctx, job.SessionID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    errorCode(err),
			ErrorMessage: errMsg,
		},
	})
}

// backoff doubles per attempt: 2s, 4s, 8s.
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}

// retryable is false for errors a second attempt cannot fix.
func retryable(err error) bool {
	var invalidKey *services.InvalidAPIKeyError
	var validation *services.ValidationError
	var unsupported *services.UnsupportedFormatError
	switch {
	case errors.As(err, &invalidKey), errors.As(err, &validation), errors.As(err, &unsupported):
		return false
	case services.IsNotFound(err):
		return false
	}
	return true
}

func errorCode(err error) string {
	var invalidKey *services.InvalidAPIKeyError
	var aiErr *services.AIError
	switch {
	case errors.As(err, &invalidKey):
		return "INVALID_API_KEY"
	case errors.As(err, &aiErr):
		return "AI_ERROR"
	}
	return "JOB_FAILED"
}

func jobQueueName(jobType string) string {
	switch jobType {
	case models.JobPodcastGeneration:
		return QueuePodcastGeneration
	case models.JobKnowledgeImport:
		return QueueKnowledgeImport
	default:
		return "queue:" + jobType
	}
}

func getResultType(jobType string) string {
	switch jobType {
	case models.JobPodcastGeneration:
		return "podcast"
	case models.JobKnowledgeImport:
		return "document"
	default:
		return jobType
	}
}
