package assemble

import (
	"strings"
	"testing"

	"github.com/devrag/devrag-go/internal/metadata"
	"github.com/devrag/devrag-go/internal/rag"
)

func result(content, repo, filename string, score float32) rag.SearchResult {
	return rag.SearchResult{
		Content: content,
		Score:   score,
		Metadata: metadata.Map{
			"repo_full_name": metadata.String("org/" + repo),
			"repo_name":      metadata.String(repo),
			"filename":       metadata.String(filename),
		},
	}
}

func Test_Context_EmptyInput(t *testing.T) {
	t.Parallel()

	if got := Context(nil, Options{MaxLength: 1000}); got != "" {
		t.Errorf("Context(nil) = %q, want empty", got)
	}
}

func Test_Context_DeduplicatesVerbatimContent(t *testing.T) {
	t.Parallel()

	results := []rag.SearchResult{
		result("def chunk(): pass", "repoA", "a.py", 0.9),
		result("def chunk(): pass", "repoB", "b.py", 0.8),
		result("def other(): pass", "repoC", "c.py", 0.7),
	}

	got := Context(results, Options{MaxLength: 10000, IncludeMetadata: true, Deduplicate: true})
	if n := strings.Count(got, "def chunk(): pass"); n != 1 {
		t.Errorf("duplicate content appears %d times, want 1", n)
	}
	if !strings.Contains(got, "def other(): pass") {
		t.Error("non-duplicate content missing")
	}
}

func Test_Context_StopsEntirelyAtLengthBoundary(t *testing.T) {
	t.Parallel()

	// Without headers each block is "\n" + 101 chars + "\n" = 103 chars.
	// A budget of 250 admits exactly two blocks (206 running chars); the
	// third would reach 309 — and the short fourth entry after it must
	// NOT be considered either.
	body := strings.Repeat("x", 100)
	results := []rag.SearchResult{
		result(body+"1", "r", "f1", 0.9),
		result(body+"2", "r", "f2", 0.8),
		result(body+"3", "r", "f3", 0.7),
		result("tiny", "r", "f4", 0.6),
	}
	got := Context(results, Options{MaxLength: 250, IncludeMetadata: false, Deduplicate: false})

	if !strings.Contains(got, body+"1") || !strings.Contains(got, body+"2") {
		t.Error("expected the first two blocks to be included")
	}
	if strings.Contains(got, body+"3") {
		t.Error("third block crosses the budget and must be excluded")
	}
	if strings.Contains(got, "tiny") {
		t.Error("assembly must stop entirely at the boundary, not skip ahead to smaller blocks")
	}
}

func Test_Context_HeaderFormat(t *testing.T) {
	t.Parallel()

	res := result("some code", "fastapi", "routing.py", 0.8765)
	res.Metadata["analysis_language"] = metadata.String("python")
	res.Metadata["analysis_functions"] = metadata.StringList([]string{"get", "post", "put", "delete", "patch"})
	res.Metadata["analysis_classes"] = metadata.StringList([]string{"Router"})

	got := Context([]rag.SearchResult{res}, Options{MaxLength: 10000, IncludeMetadata: true})

	for _, want := range []string{
		"SOURCE 1: org/fastapi/routing.py",
		"Relevance: 0.877",
		"Language: python",
		"Functions: get, post, put",
		"Classes: Router",
		"some code",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("assembled context missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "delete") {
		t.Error("function hints must be truncated to 3 items")
	}
}

func Test_Context_NoMetadataOmitsHeader(t *testing.T) {
	t.Parallel()

	got := Context([]rag.SearchResult{result("bare content", "r", "f", 0.5)},
		Options{MaxLength: 1000, IncludeMetadata: false})
	if strings.Contains(got, "SOURCE") || strings.Contains(got, "Relevance") {
		t.Errorf("headers present without IncludeMetadata: %q", got)
	}
	if !strings.Contains(got, "bare content") {
		t.Error("content missing")
	}
}

func Test_RankByDiversity_ZeroWeightKeepsRelevanceOrder(t *testing.T) {
	t.Parallel()

	results := []rag.SearchResult{
		result("a", "same", "same.py", 0.9),
		result("b", "same", "same.py", 0.8),
		result("c", "same", "same.py", 0.7),
	}

	ranked := RankByDiversity(results, 0)
	for i, want := range []string{"a", "b", "c"} {
		if ranked[i].Content != want {
			t.Errorf("ranked[%d] = %q, want %q (weight 0 must preserve order)", i, ranked[i].Content, want)
		}
	}
}

func Test_RankByDiversity_PrefersUnseenSources(t *testing.T) {
	t.Parallel()

	// With a high diversity weight the second slot should go to the
	// other-repo result despite its lower raw score.
	results := []rag.SearchResult{
		result("top", "repoA", "a.py", 0.9),
		result("same repo", "repoA", "a.py", 0.85),
		result("other repo", "repoB", "b.py", 0.5),
	}

	ranked := RankByDiversity(results, 0.9)
	if ranked[0].Content != "top" {
		t.Fatalf("top result must stay first, got %q", ranked[0].Content)
	}
	if ranked[1].Content != "other repo" {
		t.Errorf("ranked[1] = %q, want the diverse candidate", ranked[1].Content)
	}
}

func Test_RankByDiversity_SingleResult(t *testing.T) {
	t.Parallel()

	results := []rag.SearchResult{result("only", "r", "f", 0.4)}
	if got := RankByDiversity(results, 0.5); len(got) != 1 || got[0].Content != "only" {
		t.Errorf("single result must pass through unchanged")
	}
}
