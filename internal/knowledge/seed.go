package knowledge

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"solvencia-backend/internal/models"
)

//go:embed seed/knowledge.yaml
var seedYAML []byte

type seedFile struct {
	Documents []models.Document `yaml:"documents"`
}

// LoadSeed parses the built-in syllabus embedded in the binary.
func LoadSeed() ([]models.Document, error) {
	return parseSeed(seedYAML)
}

// ParseDocuments reads documents in the seed YAML layout. Used by the CLI to
// load a department's own corpus file.
func ParseDocuments(data []byte) ([]models.Document, error) {
	docs, err := parseSeed(data)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].BuiltIn = false
	}
	return docs, nil
}

func parseSeed(data []byte) ([]models.Document, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed corpus: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Documents))
	docs := make([]models.Document, 0, len(f.Documents))
	for i, d := range f.Documents {
		d.ID = strings.TrimSpace(d.ID)
		if d.ID == "" {
			return nil, fmt.Errorf("seed document %d has no id", i)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("duplicate seed document id %q", d.ID)
		}
		seen[d.ID] = struct{}{}

		d.Content = strings.TrimRight(d.Content, "\n")
		d.BuiltIn = true
		docs = append(docs, d)
	}
	return docs, nil
}
