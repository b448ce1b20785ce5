package models

import (
	"time"

	"github.com/google/uuid"
)

type Podcast struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  uuid.UUID  `json:"session_id"`
	Topic      string     `json:"topic"`
	Status     string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	Script     *string    `json:"script"`
	AudioPath  *string    `json:"-"`
	HasAudio   bool       `json:"has_audio"`
	DurationMs int64      `json:"duration_ms"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadyAt    *time.Time `json:"ready_at"`
}
