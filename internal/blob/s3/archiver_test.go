package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prophetmarkets/liquidityd/internal/domain"
)

type memBlob struct {
	objects map[string][]byte
}

func newMemBlob() *memBlob { return &memBlob{objects: map[string][]byte{}} }

func (m *memBlob) Put(_ context.Context, path string, data io.Reader, _ string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[path] = b
	return nil
}

func (m *memBlob) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlob) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var infos []domain.BlobInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			infos = append(infos, domain.BlobInfo{Path: k, Size: int64(len(v))})
		}
	}
	return infos, nil
}

func (m *memBlob) Exists(_ context.Context, path string) (bool, error) {
	_, ok := m.objects[path]
	return ok, nil
}

type memQuoteStore struct {
	quotes  []domain.QuoteRecord
	deleted int64
}

func (s *memQuoteStore) ListBefore(_ context.Context, before time.Time) ([]domain.QuoteRecord, error) {
	var out []domain.QuoteRecord
	for _, q := range s.quotes {
		if q.CreatedAt.Before(before) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *memQuoteStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var kept []domain.QuoteRecord
	for _, q := range s.quotes {
		if q.CreatedAt.Before(before) {
			s.deleted++
			continue
		}
		kept = append(kept, q)
	}
	s.quotes = kept
	return s.deleted, nil
}

type memAudit struct {
	events []string
}

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func TestArchiveQuotes_UploadsJSONL(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &memQuoteStore{quotes: []domain.QuoteRecord{
		{ID: 1, MarketAddress: "M1", GrossAmount: 1000, CreatedAt: cutoff.AddDate(0, -2, 0)},
		{ID: 2, MarketAddress: "M1", GrossAmount: 2000, CreatedAt: cutoff.AddDate(0, -1, 0)},
		{ID: 3, MarketAddress: "M2", GrossAmount: 3000, CreatedAt: cutoff.AddDate(0, 1, 0)},
	}}
	blob := newMemBlob()
	audit := &memAudit{}
	arch := NewArchiver(blob, blob, store, audit)

	n, err := arch.ArchiveQuotes(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	data, ok := blob.objects["archive/quotes/2026-08.jsonl"]
	require.True(t, ok)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var rec domain.QuoteRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, int64(1), rec.ID)

	assert.Contains(t, audit.events, "archive.quotes")
}

func TestArchiveQuotes_EmptyIsNoop(t *testing.T) {
	blob := newMemBlob()
	arch := NewArchiver(blob, blob, &memQuoteStore{}, &memAudit{})

	n, err := arch.ArchiveQuotes(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, blob.objects)
}

func TestPruneQuotes_RefusesWithoutArchive(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &memQuoteStore{quotes: []domain.QuoteRecord{
		{ID: 1, CreatedAt: cutoff.AddDate(0, -1, 0)},
	}}
	blob := newMemBlob()
	arch := NewArchiver(blob, blob, store, &memAudit{})

	_, err := arch.PruneQuotes(context.Background(), cutoff)
	require.Error(t, err)
	assert.Len(t, store.quotes, 1, "rows must survive a refused prune")
}

func TestPruneQuotes_DeletesAfterVerify(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &memQuoteStore{quotes: []domain.QuoteRecord{
		{ID: 1, CreatedAt: cutoff.AddDate(0, -1, 0)},
		{ID: 2, CreatedAt: cutoff.AddDate(0, 1, 0)},
	}}
	blob := newMemBlob()
	audit := &memAudit{}
	arch := NewArchiver(blob, blob, store, audit)

	_, err := arch.ArchiveQuotes(context.Background(), cutoff)
	require.NoError(t, err)

	deleted, err := arch.PruneQuotes(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, store.quotes, 1)
	assert.Contains(t, audit.events, "archive.quotes_pruned")
}
