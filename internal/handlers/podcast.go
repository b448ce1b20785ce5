package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"solvencia-backend/internal/middleware"
	"solvencia-backend/internal/models"
)

// PodcastHandler serves podcast records and job status to the owning session.
type PodcastHandler struct {
	podcastRepo podcastRepository
	jobRepo     jobRepository
}

func NewPodcastHandler(podcastRepo podcastRepository, jobRepo jobRepository) *PodcastHandler {
	return &PodcastHandler{podcastRepo: podcastRepo, jobRepo: jobRepo}
}

func (h *PodcastHandler) GetPodcast(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid podcast ID", r))
		return
	}

	podcast, ok := h.ownedPodcast(w, r, id)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, podcast)
}

// ownedPodcast loads a podcast of the requesting session. Missing records and
// those of other sessions both answer 404.
func (h *PodcastHandler) ownedPodcast(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*models.Podcast, bool) {
	podcast, err := h.podcastRepo.GetByID(r.Context(), id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		handleServiceError(w, r, err)
		return nil, false
	}
	if err != nil || podcast.SessionID != middleware.GetSessionID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Podcast not found", r))
		return nil, false
	}
	return podcast, true
}

func (h *PodcastHandler) Audio(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid podcast ID", r))
		return
	}

	podcast, ok := h.ownedPodcast(w, r, id)
	if !ok {
		return
	}
	if !podcast.HasAudio || podcast.AudioPath == nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Podcast has no audio", r))
		return
	}

	f, err := os.Open(*podcast.AudioPath)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Podcast audio is missing", r))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, podcast.ID.String()+".wav", info.ModTime(), f)
}

func (h *PodcastHandler) GetJob(w http.ResponseWriter, r *http.Request) {
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
	if err != nil || job.SessionID != middleware.GetSessionID(r.Context()) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	writeJSON(w, http.StatusOK, job)
}
