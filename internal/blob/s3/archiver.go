package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

// QuoteArchiveStore is the narrow slice of the quote store the archiver
// needs: time-ranged reads plus the prune step.
type QuoteArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.QuoteRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveImpl implements domain.Archiver by querying the quote store for
// aged records, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of archived rows is a separate, explicit step (PruneQuotes)
// that runs only after the uploaded object is verified to exist.
type ArchiveImpl struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	quotes QuoteArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, reader domain.BlobReader, quotes QuoteArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		reader: reader,
		quotes: quotes,
		audit:  audit,
	}
}

// ArchiveQuotes queries all quotes before the cutoff, serializes them to
// JSONL, and uploads the file to S3 at archive/quotes/YYYY-MM.jsonl. The
// archival event is recorded in the audit log and the count of archived
// records is returned.
func (a *ArchiveImpl) ArchiveQuotes(ctx context.Context, before time.Time) (int64, error) {
	quotes, err := a.quotes.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive quotes query: %w", err)
	}
	if len(quotes) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(quotes)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive quotes marshal: %w", err)
	}

	path := archivePath("quotes", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive quotes upload: %w", err)
	}

	count := int64(len(quotes))

	if err := a.audit.Log(ctx, "archive.quotes", map[string]any{
		"path":   path,
		"count":  count,
		"before": before.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive quotes audit log: %w", err)
	}

	return count, nil
}

// PruneQuotes deletes quotes before the cutoff from the primary store,
// but only after verifying that the corresponding archive object exists.
// It returns the number of deleted rows.
func (a *ArchiveImpl) PruneQuotes(ctx context.Context, before time.Time) (int64, error) {
	path := archivePath("quotes", before)

	ok, err := a.reader.Exists(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("s3blob: prune quotes verify: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("s3blob: prune quotes: archive %s not found, refusing to delete", path)
	}

	deleted, err := a.quotes.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: prune quotes delete: %w", err)
	}

	if err := a.audit.Log(ctx, "archive.quotes_pruned", map[string]any{
		"path":    path,
		"deleted": deleted,
		"before":  before.Format(time.RFC3339),
	}); err != nil {
		return deleted, fmt.Errorf("s3blob: prune quotes audit log: %w", err)
	}

	return deleted, nil
}

// archivePath builds the S3 key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/quotes/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
