package ingestion

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/devrag/devrag-go/internal/rag"
	"github.com/devrag/devrag-go/internal/source"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

// fakeIndex captures upserted records and optionally fails for records whose
// ID starts with a given prefix.
type fakeIndex struct {
	records    []rag.Record
	failPrefix string
}

func (f *fakeIndex) Upsert(_ context.Context, records []rag.Record) error {
	if f.failPrefix != "" && strings.HasPrefix(records[0].ID, f.failPrefix) {
		return errors.New("index unavailable")
	}
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeIndex) Query(context.Context, []float32, int, rag.Filter) ([]rag.SearchResult, error) {
	return nil, nil
}

func (f *fakeIndex) Stats(context.Context) (rag.IndexStats, error) {
	return rag.IndexStats{}, nil
}

func (f *fakeIndex) Close() error { return nil }

func doc(filename, text string) source.Document {
	return source.Document{
		Text: text,
		Metadata: map[string]any{
			"filename":  filename,
			"repo_name": "proj",
		},
	}
}

func newTestPipeline(t *testing.T, idx *fakeIndex) *Pipeline {
	t.Helper()
	p, err := NewPipeline(fakeEmbedder{}, idx, &Config{ChunkSize: 100, ChunkOverlap: 20}, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	return p
}

func Test_Ingest_RecordShape(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{}
	p := newTestPipeline(t, idx)

	res, err := p.Ingest(context.Background(), []source.Document{doc("main.go", strings.Repeat("code ", 60))}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.FilesProcessed != 1 || res.FilesFailed != 0 {
		t.Errorf("result = %+v", res)
	}
	if res.ChunksIngested != len(idx.records) {
		t.Errorf("ChunksIngested = %d, records = %d", res.ChunksIngested, len(idx.records))
	}
	if len(idx.records) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(idx.records))
	}

	idPattern := regexp.MustCompile(`^main\.go_\d+_[0-9a-f]{8}$`)
	for i, rec := range idx.records {
		if !idPattern.MatchString(rec.ID) {
			t.Errorf("record %d ID %q does not match filename_index_suffix", i, rec.ID)
		}
		if got := rec.Metadata.GetString("repo_name"); got != "proj" {
			t.Errorf("record %d repo_name = %q", i, got)
		}
		if idxVal, ok := rec.Metadata["chunk_index"]; !ok {
			t.Errorf("record %d missing chunk_index", i)
		} else if n, _ := idxVal.AsNumber(); int(n) != i {
			t.Errorf("record %d chunk_index = %v", i, n)
		}
		if totalVal, ok := rec.Metadata["total_chunks"]; !ok {
			t.Errorf("record %d missing total_chunks", i)
		} else if n, _ := totalVal.AsNumber(); int(n) != len(idx.records) {
			t.Errorf("record %d total_chunks = %v, want %d", i, n, len(idx.records))
		}
		if rec.Metadata.GetString("text") == "" {
			t.Errorf("record %d missing text preview", i)
		}
	}
}

func Test_Ingest_PreviewTruncated(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{}
	p, err := NewPipeline(fakeEmbedder{}, idx, &Config{ChunkSize: 3000, ChunkOverlap: 200}, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	long := strings.Repeat("x", 2500)
	if _, err := p.Ingest(context.Background(), []source.Document{doc("big.txt", long)}, nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	for _, rec := range idx.records {
		if got := len(rec.Metadata.GetString("text")); got > previewLength {
			t.Errorf("text preview %d chars, want <= %d", got, previewLength)
		}
	}
}

func Test_Ingest_SkipsFailedDocumentAndContinues(t *testing.T) {
	t.Parallel()

	idx := &fakeIndex{failPrefix: "bad.go"}
	p := newTestPipeline(t, idx)

	docs := []source.Document{
		doc("bad.go", "content that will fail to upsert"),
		doc("good.go", "content that succeeds"),
		{Text: "   ", Metadata: map[string]any{"filename": "empty.go"}},
	}
	res, err := p.Ingest(context.Background(), docs, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.FilesProcessed != 1 {
		t.Errorf("FilesProcessed = %d, want 1", res.FilesProcessed)
	}
	if res.FilesFailed != 2 {
		t.Errorf("FilesFailed = %d, want 2 (upsert failure + empty document)", res.FilesFailed)
	}
	if len(idx.records) == 0 || !strings.HasPrefix(idx.records[0].ID, "good.go") {
		t.Error("surviving document was not indexed")
	}
}

func Test_Ingest_CancelledContextStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, &fakeIndex{})
	if _, err := p.Ingest(ctx, []source.Document{doc("a.go", "content")}, nil); err == nil {
		t.Fatal("cancelled context must stop the pipeline")
	}
}

func Test_NewPipeline_RejectsBadOverlap(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(fakeEmbedder{}, &fakeIndex{}, &Config{ChunkSize: 100, ChunkOverlap: 100}, nil, nil); err == nil {
		t.Fatal("overlap >= size must be rejected")
	}
}
