package models

import "encoding/json"

// Chat modes. Each one maps to a tool button of the client.
const (
	ModeText        = "text"
	ModeQuiz        = "quiz"
	ModeMindmap     = "mindmap"
	ModePodcast     = "podcast"
	ModeInfographic = "image_infographic"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message represents a single message in a conversation.
type Message struct {
	Role      string          `json:"role"` // "user" or "model"
	Text      string          `json:"text"`
	Timestamp int64           `json:"timestamp"`
	Type      string          `json:"type,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

// ChatResponse wraps the model reply.
type ChatResponse struct {
	Message Message `json:"message"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type ConceptBranch struct {
	Node    string   `json:"node"`
	Details []string `json:"details"`
}

type ConceptMap struct {
	Core     string          `json:"core"`
	Branches []ConceptBranch `json:"branches"`
}

// InfographicImage is returned in Message.Data for image_infographic replies.
type InfographicImage struct {
	MIMEType string `json:"mime_type"`
	DataURL  string `json:"data_url"`
}
