package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"solvencia-backend/internal/knowledge"
	"solvencia-backend/internal/models"
)

const (
	maxDocumentNameLen = 200
	previewLen         = 160
	customIDPrefix     = "custom-"
)

type DocumentRepository interface {
	List(ctx context.Context) ([]models.Document, error)
	Upsert(ctx context.Context, d *models.Document) error
	Delete(ctx context.Context, id string) (bool, error)
}

type BrandingRepository interface {
	Get(ctx context.Context) (*models.Branding, error)
	Update(ctx context.Context, b *models.Branding) error
}

// KnowledgeService owns the curated corpus and the app branding.
type KnowledgeService struct {
	docs     DocumentRepository
	branding BrandingRepository
	corpus   *knowledge.Corpus
	selector *knowledge.Selector
}

func NewKnowledgeService(docs DocumentRepository, branding BrandingRepository, corpus *knowledge.Corpus, selector *knowledge.Selector) *KnowledgeService {
	return &KnowledgeService{
		docs:     docs,
		branding: branding,
		corpus:   corpus,
		selector: selector,
	}
}

// Documents returns the merged corpus used to answer students.
func (s *KnowledgeService) Documents(ctx context.Context) ([]models.Document, error) {
	return s.corpus.Documents(ctx)
}

func (s *KnowledgeService) ListSummaries(ctx context.Context) ([]models.DocumentSummary, error) {
	docs, err := s.corpus.Documents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, summarize(d))
	}
	return out, nil
}

func (s *KnowledgeService) Get(ctx context.Context, id string) (*models.Document, error) {
	docs, err := s.corpus.Documents(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, &NotFoundError{Message: "Document not found"}
}

// Create stores a new admin document under a fresh custom ID.
func (s *KnowledgeService) Create(ctx context.Context, req models.CreateDocumentRequest, source string) (*models.Document, error) {
	if err := validateDocument(req); err != nil {
		return nil, err
	}

	d := &models.Document{
		ID:      customIDPrefix + uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		Content: strings.TrimSpace(req.Content),
		Source:  source,
	}
	if err := s.docs.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	s.corpus.Invalidate()
	return d, nil
}

// Update rewrites an existing document. Built-in topics are overridden rather
// than modified in place.
func (s *KnowledgeService) Update(ctx context.Context, id string, req models.CreateDocumentRequest) (*models.Document, error) {
	if err := validateDocument(req); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &models.Document{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Content: strings.TrimSpace(req.Content),
		Source:  existing.Source,
		BuiltIn: existing.BuiltIn,
	}
	if err := s.docs.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	s.corpus.Invalidate()
	return d, nil
}

// Delete removes a custom document. For a built-in topic it only drops a
// stored override, reverting to the embedded text.
func (s *KnowledgeService) Delete(ctx context.Context, id string) error {
	builtIn := s.corpus.IsBuiltIn(id)

	deleted, err := s.docs.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if !deleted {
		if builtIn {
			return &ForbiddenError{Message: "Built-in documents cannot be deleted"}
		}
		return &NotFoundError{Message: "Document not found"}
	}

	s.corpus.Invalidate()
	return nil
}

// ImportText stores extracted text as a new document. Used by uploads and
// lecture imports.
func (s *KnowledgeService) ImportText(ctx context.Context, name, content, source string) (*models.Document, error) {
	return s.Create(ctx, models.CreateDocumentRequest{Name: name, Content: content}, source)
}

// Preview runs the selector exactly as a chat request would.
func (s *KnowledgeService) Preview(ctx context.Context, query string) (*knowledge.Selection, error) {
	docs, err := s.corpus.Documents(ctx)
	if err != nil {
		return nil, err
	}
	sel := s.selector.Select(query, docs)
	return &sel, nil
}

func (s *KnowledgeService) Branding(ctx context.Context) (*models.Branding, error) {
	return s.branding.Get(ctx)
}

func (s *KnowledgeService) UpdateBranding(ctx context.Context, b models.Branding) (*models.Branding, error) {
	b.AppName = strings.TrimSpace(b.AppName)
	b.DeptName = strings.TrimSpace(b.DeptName)

	fieldErrors := make(map[string]string)
	if b.AppName == "" {
		fieldErrors["appName"] = "App name is required"
	}
	if b.DeptName == "" {
		fieldErrors["deptName"] = "Department name is required"
	}
	if !validIcon(b.IconType) {
		fieldErrors["iconType"] = "Icon must be one of " + strings.Join(models.BrandingIcons, ", ")
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	if err := s.branding.Update(ctx, &b); err != nil {
		return nil, fmt.Errorf("failed to save branding: %w", err)
	}
	return &b, nil
}

func validIcon(icon string) bool {
	for _, i := range models.BrandingIcons {
		if i == icon {
			return true
		}
	}
	return false
}

func validateDocument(req models.CreateDocumentRequest) error {
	fieldErrors := make(map[string]string)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		fieldErrors["name"] = "Name is required"
	} else if utf8.RuneCountInString(name) > maxDocumentNameLen {
		fieldErrors["name"] = fmt.Sprintf("Name must be at most %d characters", maxDocumentNameLen)
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Content)) <= knowledge.DefaultMinContentLen {
		fieldErrors["content"] = fmt.Sprintf("Content must be longer than %d characters", knowledge.DefaultMinContentLen)
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func summarize(d models.Document) models.DocumentSummary {
	preview := d.Content
	if utf8.RuneCountInString(preview) > previewLen {
		preview = string([]rune(preview)[:previewLen]) + "…"
	}
	return models.DocumentSummary{
		ID:            d.ID,
		Name:          d.Name,
		Preview:       preview,
		ContentLength: utf8.RuneCountInString(d.Content),
		BuiltIn:       d.BuiltIn,
		UpdatedAt:     d.UpdatedAt,
	}
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.Is(err, pgx.ErrNoRows) || errors.As(err, &nf)
}
