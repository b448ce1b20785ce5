package models

import "time"

const (
	SourceManual  = "manual"
	SourceUpload  = "upload"
	SourceYouTube = "youtube"
)

// Document is one entry of the private knowledge corpus.
type Document struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Content   string    `json:"content" yaml:"content"`
	Source    string    `json:"source,omitempty" yaml:"-"` // "manual" | "upload" | "youtube"
	BuiltIn   bool      `json:"built_in" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

type CreateDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type ImportYouTubeRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type ContextPreviewRequest struct {
	Query string `json:"query"`
}

// DocumentSummary is the admin listing view; content is shortened to a preview.
type DocumentSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Preview       string    `json:"preview"`
	ContentLength int       `json:"content_length"`
	BuiltIn       bool      `json:"built_in"`
	UpdatedAt     time.Time `json:"updated_at"`
}
