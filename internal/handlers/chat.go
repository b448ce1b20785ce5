package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"solvencia-backend/internal/middleware"
	"solvencia-backend/internal/models"
	"solvencia-backend/internal/services"
	"solvencia-backend/internal/telemetry"
)

type chatResponder interface {
	Respond(ctx context.Context, in services.ChatInput) (*services.Reply, error)
}

type historyStore interface {
	Append(ctx context.Context, sessionID uuid.UUID, msgs ...models.Message) error
	Recent(ctx context.Context, sessionID uuid.UUID, n int) ([]models.Message, error)
	All(ctx context.Context, sessionID uuid.UUID) ([]models.Message, error)
	Clear(ctx context.Context, sessionID uuid.UUID) error
}

type corpusReader interface {
	Documents(ctx context.Context) ([]models.Document, error)
	Branding(ctx context.Context) (*models.Branding, error)
}

type podcastRepository interface {
	Create(ctx context.Context, p *models.Podcast) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Podcast, error)
}

type jobRepository interface {
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type jobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type ChatHandler struct {
	responder     chatResponder
	history       historyStore
	corpus        corpusReader
	podcastRepo   podcastRepository
	jobRepo       jobRepository
	queue         jobQueue
	historyWindow int
}

func NewChatHandler(
	responder chatResponder,
	history historyStore,
	corpus corpusReader,
	podcastRepo podcastRepository,
	jobRepo jobRepository,
	queue jobQueue,
	historyWindow int,
) *ChatHandler {
	return &ChatHandler{
		responder:     responder,
		history:       history,
		corpus:        corpus,
		podcastRepo:   podcastRepo,
		jobRepo:       jobRepo,
		queue:         queue,
		historyWindow: historyWindow,
	}
}

var chatModes = map[string]bool{
	models.ModeText:        true,
	models.ModeQuiz:        true,
	models.ModeMindmap:     true,
	models.ModePodcast:     true,
	models.ModeInfographic: true,
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Mode == "" {
		req.Mode = models.ModeText
	}
	if !chatModes[req.Mode] {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"mode": "unknown mode: " + req.Mode}, r))
		return
	}
	if req.Mode == models.ModeText && strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	sessionID := middleware.GetSessionID(r.Context())
	prompt := services.ToolPrompt(req.Mode, req.Message)
	branding := h.branding(r.Context())

	// History is read before the new turn is stored; the prompt is sent separately.
	history, greeting := h.conversation(r.Context(), sessionID, branding)

	if req.Mode == models.ModePodcast {
		h.startPodcast(w, r, sessionID, prompt, services.ToolTopic(req.Message), history, greeting)
		return
	}

	docs, err := h.corpus.Documents(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	reply, err := h.responder.Respond(r.Context(), services.ChatInput{
		Prompt:    prompt,
		History:   history,
		Mode:      req.Mode,
		Branding:  branding,
		Documents: docs,
	})
	telemetry.RecordChat(req.Mode, err)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	now := time.Now().UnixMilli()
	userMsg := models.Message{Role: models.RoleUser, Text: prompt, Timestamp: now}
	modelMsg := models.Message{
		Role:      models.RoleModel,
		Text:      reply.Text,
		Timestamp: now,
		Type:      reply.Type,
		Data:      reply.Data,
	}
	if modelMsg.Type == models.ModeText {
		modelMsg.Type = ""
	}
	if err := h.history.Append(r.Context(), sessionID, withGreeting(greeting, userMsg, modelMsg)...); err != nil {
		log.Printf("failed to store history for session %s: %v", sessionID, err)
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Message: modelMsg})
}

func (h *ChatHandler) branding(ctx context.Context) models.Branding {
	if b, err := h.corpus.Branding(ctx); err == nil && b != nil {
		return *b
	}
	return models.DefaultBranding()
}

// conversation returns the recent turns of a session. A session with no turns
// yet starts from the greeting, which is returned separately so the caller
// stores it together with the next turn.
func (h *ChatHandler) conversation(ctx context.Context, sessionID uuid.UUID, branding models.Branding) ([]models.Message, *models.Message) {
	history, err := h.history.Recent(ctx, sessionID, h.historyWindow)
	if err != nil {
		log.Printf("failed to load history for session %s: %v", sessionID, err)
		return nil, nil
	}
	if len(history) > 0 {
		return history, nil
	}
	greeting := models.Message{
		Role:      models.RoleModel,
		Text:      services.GreetingText(branding.DeptName),
		Timestamp: time.Now().UnixMilli(),
	}
	return []models.Message{greeting}, &greeting
}

func withGreeting(greeting *models.Message, msgs ...models.Message) []models.Message {
	if greeting == nil {
		return msgs
	}
	return append([]models.Message{*greeting}, msgs...)
}

func (h *ChatHandler) startPodcast(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID, prompt, topic string, history []models.Message, greeting *models.Message) {
	podcast := &models.Podcast{SessionID: sessionID, Topic: topic}
	if err := h.podcastRepo.Create(r.Context(), podcast); err != nil {
		handleServiceError(w, r, err)
		return
	}

	config, _ := json.Marshal(models.PodcastJobConfig{Topic: topic, Prompt: prompt, History: history})
	job := &models.Job{
		SessionID:   sessionID,
		Type:        models.JobPodcastGeneration,
		ReferenceID: podcast.ID.String(),
		ConfigJSON:  config,
	}
	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		handleServiceError(w, r, err)
		return
	}
	telemetry.RecordChat(models.ModePodcast, nil)

	userMsg := models.Message{Role: models.RoleUser, Text: prompt, Timestamp: time.Now().UnixMilli()}
	if err := h.history.Append(r.Context(), sessionID, withGreeting(greeting, userMsg)...); err != nil {
		log.Printf("failed to store history for session %s: %v", sessionID, err)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":     job.ID,
		"podcast_id": podcast.ID,
		"message":    services.PodcastPendingText,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	messages, err := h.history.All(r.Context(), sessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if len(messages) == 0 {
		greeting := models.Message{
			Role:      models.RoleModel,
			Text:      services.GreetingText(h.branding(r.Context()).DeptName),
			Timestamp: time.Now().UnixMilli(),
		}
		if err := h.history.Append(r.Context(), sessionID, greeting); err != nil {
			log.Printf("failed to store greeting for session %s: %v", sessionID, err)
		}
		messages = []models.Message{greeting}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	if err := h.history.Clear(r.Context(), sessionID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
