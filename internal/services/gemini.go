package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	genaisdk "google.golang.org/genai"

	"solvencia-backend/internal/knowledge"
	"solvencia-backend/internal/models"
	"solvencia-backend/internal/telemetry"
)

const chatTemperature = 0.7

// ImageGenerator renders infographics; implemented by MediaService.
type ImageGenerator interface {
	GenerateInfographic(ctx context.Context, prompt string) (*Image, error)
}

type ChatInput struct {
	Prompt    string
	History   []models.Message
	Mode      string
	Branding  models.Branding
	Documents []models.Document
}

type Reply struct {
	Text      string
	Type      string
	Data      json.RawMessage
	Selection knowledge.Selection
}

type GeminiService struct {
	client        *genai.Client
	modelName     string
	selector      *knowledge.Selector
	historyWindow int
	images        ImageGenerator
	rateChan      chan struct{} // Token bucket
}

func NewGeminiService(
	apiKey string,
	modelName string,
	concurrentReqs int,
	selector *knowledge.Selector,
	historyWindow int,
	images ImageGenerator,
) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Token bucket for rate limiting
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:        client,
		modelName:     modelName,
		selector:      selector,
		historyWindow: historyWindow,
		images:        images,
		rateChan:      rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Respond answers one chat turn. The knowledge selector picks the context
// injected into the system instruction from in.Documents.
func (s *GeminiService) Respond(ctx context.Context, in ChatInput) (*Reply, error) {
	switch in.Mode {
	case models.ModeText, models.ModeQuiz, models.ModeMindmap:
	case models.ModeInfographic:
		return s.respondInfographic(ctx, in.Prompt)
	case models.ModePodcast:
		return nil, &ValidationError{Fields: map[string]string{"mode": "podcast replies are generated as a background job"}}
	default:
		return nil, &ValidationError{Fields: map[string]string{"mode": "unknown mode: " + in.Mode}}
	}

	sel := s.selector.Select(in.Prompt, in.Documents)
	telemetry.RecordContext(len([]rune(sel.Context)), len(sel.Documents))

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(chatTemperature)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(BuildSystemInstruction(in.Branding, sel.Context))},
	}
	if schema := responseSchema(in.Mode); schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = schema
	}

	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	cs := model.StartChat()
	cs.History = buildHistory(in.History, s.historyWindow)

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(in.Prompt))
	telemetry.ObserveLLM("chat_"+in.Mode, start)
	if err != nil {
		return nil, classifyError(err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	reply := parseReply(in.Mode, extractText(resp))
	reply.Selection = sel
	return reply, nil
}

// GeneratePodcastScript asks for the spoken summary the TTS model will voice.
// request is the student's podcast tool prompt.
func (s *GeminiService) GeneratePodcastScript(ctx context.Context, request string, history []models.Message, branding models.Branding, docs []models.Document) (string, error) {
	reply, err := s.Respond(ctx, ChatInput{
		Prompt:    PodcastScriptPrompt(request),
		History:   history,
		Mode:      models.ModeText,
		Branding:  branding,
		Documents: docs,
	})
	if err != nil {
		return "", err
	}
	script := strings.TrimSpace(reply.Text)
	if script == "" {
		return "", &AIError{Err: errors.New("empty podcast script")}
	}
	return script, nil
}

func (s *GeminiService) respondInfographic(ctx context.Context, prompt string) (*Reply, error) {
	if s.images == nil {
		return &Reply{Text: InfographicFailedText, Type: models.ModeInfographic}, nil
	}

	img, err := s.images.GenerateInfographic(ctx, prompt)
	if errors.Is(err, ErrNoImage) {
		return &Reply{Text: InfographicFailedText, Type: models.ModeInfographic}, nil
	}
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(models.InfographicImage{MIMEType: img.MIMEType, DataURL: img.DataURL()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &Reply{Text: InfographicReadyText, Type: models.ModeInfographic, Data: data}, nil
}

// TranscribeAudio uses Gemini File API to transcribe uploaded audio bytes.
func (s *GeminiService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	if len(audio) == 0 {
		return "", fmt.Errorf("audio payload is empty")
	}

	file, err := s.client.UploadFile(ctx, "", bytes.NewReader(audio), &genai.UploadFileOptions{
		DisplayName: "lecture-audio",
		MIMEType:    mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audio to Gemini: %w", err)
	}

	defer s.client.DeleteFile(context.Background(), file.Name)

	for i := 0; i < 20; i++ {
		current, getErr := s.client.GetFile(ctx, file.Name)
		if getErr != nil {
			return "", fmt.Errorf("failed to get uploaded file status: %w", getErr)
		}

		if current.State == genai.FileStateActive {
			file = current
			break
		}
		if current.State == genai.FileStateFailed {
			return "", fmt.Errorf("Gemini failed to process uploaded audio file")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}

	if file.State != genai.FileStateActive {
		return "", fmt.Errorf("audio file did not become active in time")
	}

	prompt := "Transcribe el audio de forma literal. Devuelve solo texto plano, sin markdown, encabezados ni explicaciones."

	model := s.client.GenerativeModel(s.modelName)
	start := time.Now()
	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.FileData{MIMEType: mimeType, URI: file.URI},
	)
	telemetry.ObserveLLM("transcribe", start)
	if err != nil {
		return "", classifyError(err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", fmt.Errorf("Gemini returned empty transcription")
	}

	return text, nil
}

// Helper functions

// buildHistory keeps the last window messages. Anything that is not a user
// message is sent back as the model's turn.
func buildHistory(history []models.Message, window int) []*genai.Content {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := models.RoleModel
		if msg.Role == models.RoleUser {
			role = models.RoleUser
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Text)},
		})
	}
	return contents
}

func responseSchema(mode string) *genai.Schema {
	str := &genai.Schema{Type: genai.TypeString}
	strList := &genai.Schema{Type: genai.TypeArray, Items: str}

	switch mode {
	case models.ModeQuiz:
		return &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"question":      str,
					"options":       strList,
					"correctAnswer": {Type: genai.TypeInteger},
					"explanation":   str,
				},
				Required: []string{"question", "options", "correctAnswer", "explanation"},
			},
		}
	case models.ModeMindmap:
		return &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"core": str,
				"branches": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"node":    str,
							"details": strList,
						},
					},
				},
			},
		}
	}
	return nil
}

// parseReply turns the raw model text into the reply for mode. Structured
// modes fall back to the raw text when the JSON cannot be used.
func parseReply(mode, raw string) *Reply {
	if mode == models.ModeText {
		return &Reply{Text: raw, Type: models.ModeText}
	}

	cleaned := stripCodeFence(raw)

	var data interface{}
	switch mode {
	case models.ModeQuiz:
		var questions []models.QuizQuestion
		if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
			return &Reply{Text: raw}
		}
		valid := validateQuizQuestions(questions)
		if len(valid) == 0 {
			return &Reply{Text: raw}
		}
		data = valid
	case models.ModeMindmap:
		var cm models.ConceptMap
		if err := json.Unmarshal([]byte(cleaned), &cm); err != nil || strings.TrimSpace(cm.Core) == "" {
			return &Reply{Text: raw}
		}
		data = cm
	default:
		return &Reply{Text: raw}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return &Reply{Text: raw}
	}
	return &Reply{Text: StructuredReplyText, Type: mode, Data: encoded}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func validateQuizQuestions(questions []models.QuizQuestion) []models.QuizQuestion {
	var valid []models.QuizQuestion
	for _, q := range questions {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 {
			continue
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			q.CorrectAnswer = 0
		}
		valid = append(valid, q)
	}
	return valid
}

// classifyError maps API failures onto typed errors. A 400 from the API means
// the key is rejected. Both SDKs are matched on status code, not message text.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if statusCode(err) == http.StatusBadRequest || strings.Contains(err.Error(), "API_KEY_INVALID") {
		return &InvalidAPIKeyError{Err: err}
	}
	return &AIError{Err: err}
}

// statusCode is the HTTP status carried by an error from either Gemini SDK,
// or 0.
func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	var aerr genaisdk.APIError
	if errors.As(err, &aerr) {
		return aerr.Code
	}
	var aerrPtr *genaisdk.APIError
	if errors.As(err, &aerrPtr) && aerrPtr != nil {
		return aerrPtr.Code
	}
	return 0
}
