package weighbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ImportFailure is a file of a directory import that did not yield a ticket
type ImportFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// ImportSummary reports the outcome of a directory import
type ImportSummary struct {
	Issued   []*Record       `json:"issued"`
	Failures []ImportFailure `json:"failures"`
}

// ImportDirectory issues tickets for every XML file in dir, processing up to
// workers files at a time. A file that cannot be turned into a ticket is
// recorded as a failure and does not stop the import; only a cancelled
// context or an unreadable directory does.
func (s *Service) ImportDirectory(ctx context.Context, dir string, workers int) (*ImportSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading import directory: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	var (
		mu      sync.Mutex
		summary = &ImportSummary{
			Issued:   make([]*Record, 0),
			Failures: make([]ImportFailure, 0),
		}
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		name := entry.Name()

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			record, err := s.importFile(filepath.Join(dir, name))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Failed to import document", "filename", name, "error", err)
				summary.Failures = append(summary.Failures, ImportFailure{Filename: name, Error: err.Error()})
				return nil
			}
			summary.Issued = append(summary.Issued, record)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, fmt.Errorf("importing %s: %w", dir, err)
	}

	slog.Info("Import finished", "dir", dir, "issued", len(summary.Issued), "failed", len(summary.Failures))
	return summary, nil
}

func (s *Service) importFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	extracted, record, err := s.ProcessDocument(filepath.Base(path), data, "application/xml")
	if err != nil {
		if extracted == nil {
			return nil, err
		}
		if delErr := s.storage.Delete(extracted.DocumentPath); delErr != nil {
			slog.Warn("Failed to delete file", "filename", extracted.DocumentPath, "error", delErr)
		}
		if extracted.Result.Error != "" {
			return nil, errors.New(extracted.Result.Error)
		}
		return nil, err
	}
	return record, nil
}
