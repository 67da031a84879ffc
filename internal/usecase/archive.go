package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

// ArchiveImporter loads records from the historical document archive straight into the
// store under the "doc" tag. Archive entries were curated by hand, so they skip classification.
type ArchiveImporter struct {
	embedder   ports.Embedder
	store      ports.IncidentStore
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewArchiveImporter wires embedding and storage for archive imports.
func NewArchiveImporter(embedder ports.Embedder, store ports.IncidentStore, logger *slog.Logger) *ArchiveImporter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ArchiveImporter{
		embedder:   embedder,
		store:      store,
		normalizer: NewNormalizer(logger),
		logger:     logger,
	}
}

// Import inserts every record and returns how many were stored. With clear set, the store is
// emptied first, which is how a full historical re-import starts.
func (a *ArchiveImporter) Import(ctx context.Context, records []domain.RawRecord, clear bool) (int, error) {
	if a.embedder == nil || a.store == nil {
		return 0, errors.New("archive importer: embedder and store are required")
	}

	if clear {
		if err := a.store.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("clear store: %w", err)
		}
		a.logger.Warn("incident store cleared before archive import")
	}

	imported := 0
	for i, rec := range records {
		c := a.normalizer.NormalizeOne(rec)
		if !c.HasText() {
			return imported, domain.ValidationError("archive import",
				fmt.Errorf("record %d has no title, location, date or content", i))
		}

		vector, err := a.embedder.Embed(ctx, c.CombinedText())
		if err != nil {
			return imported, fmt.Errorf("record %d: embed: %w", i, err)
		}

		inc := domain.Incident{
			Title:       c.Title,
			Source:      c.Source,
			Author:      c.Author,
			PublishedAt: c.PublishedAt,
			Content:     c.Content,
			Location:    domain.Value(c.Location),
			Embedding:   vector,
			CollectedAt: domain.TagArchive,
		}
		inc.AddURL(c.URL)

		if _, err := a.store.Insert(ctx, inc); err != nil {
			return imported, fmt.Errorf("record %d: insert: %w", i, err)
		}
		imported++
	}

	a.logger.Info("archive imported", "records", len(records), "imported", imported)
	return imported, nil
}
