package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"solvencia-backend/internal/knowledge"
	"solvencia-backend/internal/models"
	"solvencia-backend/internal/services"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var file string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store corpus documents from a YAML file",
		Long: "Reads documents in the built-in corpus layout (a top-level \"documents\" list of id, name\n" +
			"and content) and stores them. Without --file the built-in topics are written, which makes\n" +
			"them editable as stored overrides.",
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := loadSeedDocuments(file)
			if err != nil {
				return err
			}

			return ctx.withStore(func(s *store) error {
				runCtx, cancel := commandTimeout(cmd, 5*time.Minute)
				defer cancel()

				existing, err := s.docs.List(runCtx)
				if err != nil {
					return err
				}
				stored := make(map[string]bool, len(existing))
				for _, d := range existing {
					stored[d.ID] = true
				}

				written, skipped := 0, 0
				for i := range docs {
					if stored[docs[i].ID] && !overwrite {
						skipped++
						continue
					}
					docs[i].Source = models.SourceManual
					if err := s.docs.Upsert(runCtx, &docs[i]); err != nil {
						return fmt.Errorf("store %s: %w", docs[i].ID, err)
					}
					written++
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d documents (%d already present)\n", written, skipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML corpus file (defaults to the built-in topics)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace documents that are already stored")
	return cmd
}

func loadSeedDocuments(file string) ([]models.Document, error) {
	if strings.TrimSpace(file) == "" {
		return knowledge.LoadSeed()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	return knowledge.ParseDocuments(data)
}

type importResult struct {
	file string
	doc  *models.Document
	err  error
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Extract PDF, DOCX or TXT files into corpus documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extractor := services.NewFileExtractService()

			return ctx.withStore(func(s *store) error {
				g, gctx := errgroup.WithContext(cmd.Context())
				if concurrency > 0 {
					g.SetLimit(concurrency)
				}

				var mu sync.Mutex
				results := make([]importResult, 0, len(args))

				for _, path := range args {
					g.Go(func() error {
						doc, err := importFile(gctx, s, extractor, path)
						mu.Lock()
						results = append(results, importResult{file: path, doc: doc, err: err})
						mu.Unlock()
						// A bad file is reported, not fatal for the batch.
						return gctx.Err()
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}

				return renderImportResults(cmd.OutOrStdout(), results)
			})
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Files processed in parallel")
	return cmd
}

func renderImportResults(w io.Writer, results []importResult) error {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			rows = append(rows, []string{filepath.Base(r.file), "-", "failed: " + r.err.Error()})
			continue
		}
		rows = append(rows, []string{filepath.Base(r.file), r.doc.ID, strconv.Itoa(utf8.RuneCountInString(r.doc.Content)) + " chars"})
	}

	fmt.Fprintln(w, renderTable(w, []string{"File", "Document", "Result"}, rows, nil))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the merged corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(s *store) error {
				summaries, err := s.knowledge.ListSummaries(cmd.Context())
				if err != nil {
					return err
				}
				stored, err := s.docs.Count(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(summaries))
				for _, d := range summaries {
					kind := "custom"
					if d.BuiltIn {
						kind = "built-in"
					}
					rows = append(rows, []string{d.ID, truncate(d.Name, 60), kind, strconv.Itoa(d.ContentLength)})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"ID", "Name", "Kind", "Chars"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
				fmt.Fprintf(out, "%d documents (%d stored in the database)\n", len(summaries), stored)
				return nil
			})
		},
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
