package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobPodcastGeneration = "podcast-generation"
	JobKnowledgeImport   = "knowledge-import"
)

type Job struct {
	ID           uuid.UUID       `json:"id"`
	SessionID    uuid.UUID       `json:"session_id"`
	Type         string          `json:"type"` // "podcast-generation" | "knowledge-import"
	ReferenceID  string          `json:"reference_id"`
	ConfigJSON   json.RawMessage `json:"config"`
	Status       string          `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

// PodcastJobConfig is stored in Job.ConfigJSON for podcast-generation jobs.
type PodcastJobConfig struct {
	Topic string `json:"topic"`
	// Prompt is the student's full tool request; the script prompt wraps it.
	Prompt string `json:"prompt,omitempty"`
	// History is the conversation as it was when the podcast was requested,
	// without the request itself.
	History []Message `json:"history,omitempty"`
}

// ImportJobConfig is stored in Job.ConfigJSON for knowledge-import jobs.
type ImportJobConfig struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type StatusUpdate struct {
	JobID                     uuid.UUID `json:"job_id"`
	Step                      int       `json:"step"`
	StepName                  string    `json:"step_name"`
	EstimatedSecondsRemaining int       `json:"estimated_seconds_remaining"`
}

type CompletedEvent struct {
	JobID      uuid.UUID `json:"job_id"`
	ResultID   string    `json:"result_id"`
	ResultType string    `json:"result_type"`
}

type ErrorEvent struct {
	JobID        uuid.UUID `json:"job_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
