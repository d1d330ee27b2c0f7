package ingest

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront-ai/shop-assist/internal/index"
	"github.com/storefront-ai/shop-assist/internal/observability"
)

// fakeIndex records collection operations.
type fakeIndex struct {
	exists  bool
	created int
	added   []index.Document
}

func (f *fakeIndex) Exists(ctx context.Context) (bool, error) { return f.exists, nil }
func (f *fakeIndex) Create(ctx context.Context) error {
	f.created++
	f.exists = true
	return nil
}
func (f *fakeIndex) Add(ctx context.Context, docs []index.Document) error {
	f.added = append(f.added, docs...)
	return nil
}
func (f *fakeIndex) Query(ctx context.Context, text string, k int) ([]index.Match, error) {
	return nil, nil
}
func (f *fakeIndex) Count(ctx context.Context) (int, error) { return len(f.added), nil }

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFAQ(t *testing.T) {
	t.Run("parses question and answer columns", func(t *testing.T) {
		reader := csv.NewReader(strings.NewReader(
			"question,answer\n" +
				"How do I get a refund?,Refunds take 7 days.\n" +
				"Do you ship abroad?,We ship within India only.\n",
		))

		entries, err := parseFAQ(reader)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "How do I get a refund?", entries[0].Question)
		assert.Equal(t, "Refunds take 7 days.", entries[0].Answer)
	})

	t.Run("column order does not matter", func(t *testing.T) {
		reader := csv.NewReader(strings.NewReader(
			"answer,question\n" +
				"Refunds take 7 days.,How do I get a refund?\n",
		))

		entries, err := parseFAQ(reader)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "How do I get a refund?", entries[0].Question)
	})

	t.Run("missing columns fail", func(t *testing.T) {
		reader := csv.NewReader(strings.NewReader("question,reply\nq,a\n"))

		_, err := parseFAQ(reader)
		assert.Error(t, err)
	})

	t.Run("empty file fails", func(t *testing.T) {
		reader := csv.NewReader(strings.NewReader("question,answer\n"))

		_, err := parseFAQ(reader)
		assert.Error(t, err)
	})

	t.Run("malformed record fails", func(t *testing.T) {
		reader := csv.NewReader(strings.NewReader(
			"question,answer\n" +
				"only one field\n",
		))

		_, err := parseFAQ(reader)
		assert.Error(t, err)
	})
}

func TestBootstrapper_EnsureIngested(t *testing.T) {
	logger := observability.Nop()

	csvContent := "question,answer\n" +
		"How do I get a refund?,Refunds take 7 days.\n" +
		"Do you ship abroad?,We ship within India only.\n"

	t.Run("ingests when collection is missing", func(t *testing.T) {
		idx := &fakeIndex{}
		boot := NewBootstrapper(idx, logger)

		err := boot.EnsureIngested(context.Background(), writeTempCSV(t, csvContent))
		require.NoError(t, err)

		assert.Equal(t, 1, idx.created)
		require.Len(t, idx.added, 2)
		assert.Equal(t, "id_0", idx.added[0].ID)
		assert.Equal(t, "How do I get a refund?", idx.added[0].Text)
		assert.Equal(t, "Refunds take 7 days.", idx.added[0].Metadata["answer"])
		assert.Equal(t, "id_1", idx.added[1].ID)
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		idx := &fakeIndex{}
		boot := NewBootstrapper(idx, logger)
		path := writeTempCSV(t, csvContent)

		require.NoError(t, boot.EnsureIngested(context.Background(), path))
		require.NoError(t, boot.EnsureIngested(context.Background(), path))

		assert.Equal(t, 1, idx.created)
		assert.Len(t, idx.added, 2)
	})

	t.Run("existing collection skips the source file", func(t *testing.T) {
		idx := &fakeIndex{exists: true}
		boot := NewBootstrapper(idx, logger)

		err := boot.EnsureIngested(context.Background(), "does-not-exist.csv")
		require.NoError(t, err)
		assert.Zero(t, idx.created)
	})

	t.Run("missing source file fails", func(t *testing.T) {
		idx := &fakeIndex{}
		boot := NewBootstrapper(idx, logger)

		err := boot.EnsureIngested(context.Background(), "does-not-exist.csv")
		assert.Error(t, err)
		assert.Zero(t, idx.created)
	})
}

func TestRoutesBootstrapper_EnsureSeeded(t *testing.T) {
	logger := observability.Nop()

	t.Run("seeds built-in exemplars", func(t *testing.T) {
		idx := &fakeIndex{}
		boot := NewRoutesBootstrapper(idx, logger)

		err := boot.EnsureSeeded(context.Background(), "")
		require.NoError(t, err)

		assert.Equal(t, 1, idx.created)
		assert.Len(t, idx.added, len(defaultRouteExemplars))
		for _, doc := range idx.added {
			route := doc.Metadata["route"]
			assert.Contains(t, []string{"structured", "unstructured"}, route)
		}
	})

	t.Run("seeds from file", func(t *testing.T) {
		idx := &fakeIndex{}
		boot := NewRoutesBootstrapper(idx, logger)

		path := writeTempCSV(t, "question,route\nshow top shoes,structured\nrefund policy?,unstructured\n")
		err := boot.EnsureSeeded(context.Background(), path)
		require.NoError(t, err)

		require.Len(t, idx.added, 2)
		assert.Equal(t, "structured", idx.added[0].Metadata["route"])
		assert.Equal(t, "unstructured", idx.added[1].Metadata["route"])
	})

	t.Run("unknown route label fails", func(t *testing.T) {
		idx := &fakeIndex{}
		boot := NewRoutesBootstrapper(idx, logger)

		path := writeTempCSV(t, "question,route\nshow top shoes,tabular\n")
		err := boot.EnsureSeeded(context.Background(), path)
		assert.Error(t, err)
		assert.Zero(t, idx.created)
	})

	t.Run("existing collection is left alone", func(t *testing.T) {
		idx := &fakeIndex{exists: true}
		boot := NewRoutesBootstrapper(idx, logger)

		require.NoError(t, boot.EnsureSeeded(context.Background(), ""))
		assert.Zero(t, idx.created)
	})
}
