package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"solvencia-backend/internal/knowledge"
	"solvencia-backend/internal/models"
	"solvencia-backend/internal/services"
)

const maxUploadBytes = 20 << 20

type knowledgeManager interface {
	ListSummaries(ctx context.Context) ([]models.DocumentSummary, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, req models.CreateDocumentRequest, source string) (*models.Document, error)
	Update(ctx context.Context, id string, req models.CreateDocumentRequest) (*models.Document, error)
	Delete(ctx context.Context, id string) error
	ImportText(ctx context.Context, name, content, source string) (*models.Document, error)
	Preview(ctx context.Context, query string) (*knowledge.Selection, error)
	Branding(ctx context.Context) (*models.Branding, error)
	UpdateBranding(ctx context.Context, b models.Branding) (*models.Branding, error)
}

type textExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

// KnowledgeHandler serves the admin corpus endpoints and the public branding.
type KnowledgeHandler struct {
	knowledge knowledgeManager
	extractor textExtractor
	jobRepo   jobRepository
	queue     jobQueue
}

func NewKnowledgeHandler(km knowledgeManager, extractor textExtractor, jobRepo jobRepository, queue jobQueue) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledge: km,
		extractor: extractor,
		jobRepo:   jobRepo,
		queue:     queue,
	}
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.knowledge.ListSummaries(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.knowledge.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.knowledge.Create(r.Context(), req, models.SourceManual)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.knowledge.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.knowledge.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload extracts the text of a PDF, DOCX or TXT file and stores it as a
// new document.
func (h *KnowledgeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 20MB limit", r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 20MB limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid multipart form", r))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	text, err := h.extractor.ExtractText(header.Filename, data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	doc, err := h.knowledge.ImportText(r.Context(), name, text, models.SourceUpload)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ImportYouTube queues a lecture transcript import.
func (h *KnowledgeHandler) ImportYouTube(w http.ResponseWriter, r *http.Request) {
	var req models.ImportYouTubeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	videoID, ok := services.ExtractVideoID(req.URL)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"url": "A YouTube URL is required"}, r))
		return
	}

	config, err := json.Marshal(models.ImportJobConfig{URL: req.URL, Name: strings.TrimSpace(req.Name)})
	if err != nil {
		handleServiceError(w, r, fmt.Errorf("failed to encode job config: %w", err))
		return
	}

	// Admin jobs are not tied to a student session.
	job := &models.Job{
		SessionID:   uuid.Nil,
		Type:        models.JobKnowledgeImport,
		ReferenceID: videoID,
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

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":   job.ID,
		"video_id": videoID,
	})
}

func (h *KnowledgeHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return
	}

	job, err := h.jobRepo.GetByID(r.Context(), id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		handleServiceError(w, r, err)
		return
	}
	if err != nil || job.Type != models.JobKnowledgeImport {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *KnowledgeHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req models.ContextPreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Query is required", r))
		return
	}

	sel, err := h.knowledge.Preview(r.Context(), req.Query)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (h *KnowledgeHandler) GetBranding(w http.ResponseWriter, r *http.Request) {
	b, err := h.knowledge.Branding(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *KnowledgeHandler) UpdateBranding(w http.ResponseWriter, r *http.Request) {
	var req models.Branding
	if !decodeJSON(w, r, &req) {
		return
	}

	b, err := h.knowledge.UpdateBranding(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
