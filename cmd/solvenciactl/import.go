package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"solvencia-backend/internal/models"
)

type textExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

type documentImporter interface {
	ImportText(ctx context.Context, name, content, source string) (*models.Document, error)
}

// importFile stores one local file as an uploaded document named after the file.
func importFile(ctx context.Context, s *store, extractor textExtractor, path string) (*models.Document, error) {
	return importInto(ctx, s.knowledge, extractor, path)
}

func importInto(ctx context.Context, importer documentImporter, extractor textExtractor, path string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	content, err := extractor.ExtractText(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	name := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		return nil, fmt.Errorf("cannot derive a document name from %q", path)
	}

	return importer.ImportText(ctx, name, content, models.SourceUpload)
}
