// Package assemble turns ranked search results into a single bounded,
// prompt-ready context string. Results are consumed in caller-supplied
// order (assumed relevance-sorted); assembly deduplicates verbatim content,
// prefixes each entry with a source header, and stops at the first entry
// that would push the context past its length budget, so the output is
// always a prefix of the deduplicated input sequence.
package assemble

import (
	"fmt"
	"strings"

	"github.com/devrag/devrag-go/internal/rag"
)

// DefaultMaxLength is the context character budget used when the caller
// passes 0.
const DefaultMaxLength = 4000

// maxHintItems caps how many function/class name hints appear per header.
const maxHintItems = 3

// headerRule separates entry headers from content.
var headerRule = strings.Repeat("=", 60)

// Options controls one assembly pass.
type Options struct {
	// MaxLength is the character budget for the assembled context.
	// Zero means DefaultMaxLength.
	MaxLength int

	// IncludeMetadata adds a source header (repository, filename,
	// relevance, code hints) above each entry's content.
	IncludeMetadata bool

	// Deduplicate skips entries whose content has already been included
	// verbatim. Matching is exact, not fuzzy.
	Deduplicate bool
}

// Context builds the context string from results. Entries are visited in
// input order; an entry whose block would push the running length past the
// budget terminates assembly entirely — later, smaller entries are not
// considered, which keeps truncation deterministic and order-respecting.
// Empty input yields an empty string.
func Context(results []rag.SearchResult, opts Options) string {
	if len(results) == 0 {
		return ""
	}

	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var (
		parts       []string
		totalLength int
		seen        map[string]bool
	)
	if opts.Deduplicate {
		seen = make(map[string]bool, len(results))
	}

	for i, res := range results {
		if opts.Deduplicate && seen[res.Content] {
			continue
		}

		block := entryBlock(i+1, res, opts.IncludeMetadata)
		if totalLength+len(block) > maxLength {
			break
		}

		parts = append(parts, block)
		totalLength += len(block)
		if opts.Deduplicate {
			seen[res.Content] = true
		}
	}

	return strings.Join(parts, "\n")
}

// entryBlock renders one result, optionally with its source header. The
// ordinal is the result's 1-based position in the original sequence, so
// numbering stays stable even when duplicates are skipped.
func entryBlock(ordinal int, res rag.SearchResult, includeMetadata bool) string {
	if !includeMetadata {
		return "\n" + res.Content + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(headerRule)
	b.WriteString("\n")
	fmt.Fprintf(&b, "SOURCE %d: %s/%s\n", ordinal, metaOr(res, "repo_full_name"), metaOr(res, "filename"))
	fmt.Fprintf(&b, "Relevance: %.3f\n", res.Score)

	if lang := res.Metadata.GetString("analysis_language"); lang != "" {
		fmt.Fprintf(&b, "Language: %s\n", lang)
	}
	if funcs := res.Metadata.GetStringList("analysis_functions"); len(funcs) > 0 {
		fmt.Fprintf(&b, "Functions: %s\n", joinHints(funcs))
	}
	if classes := res.Metadata.GetStringList("analysis_classes"); len(classes) > 0 {
		fmt.Fprintf(&b, "Classes: %s\n", joinHints(classes))
	}

	b.WriteString(headerRule)
	b.WriteString("\n")
	b.WriteString(res.Content)
	b.WriteString("\n")
	return b.String()
}

// metaOr returns the named metadata string, or "Unknown" when absent.
func metaOr(res rag.SearchResult, key string) string {
	if s := res.Metadata.GetString(key); s != "" {
		return s
	}
	return "Unknown"
}

// joinHints joins up to maxHintItems names with ", ".
func joinHints(names []string) string {
	if len(names) > maxHintItems {
		names = names[:maxHintItems]
	}
	return strings.Join(names, ", ")
}

// RankByDiversity reorders results to balance relevance against source
// variety. The top result always stays first; each following slot is
// filled greedily by the remaining candidate maximising
//
//	(1-weight)*score + weight*diversityScore
//
// where diversityScore accumulates 0.5 for a differing repository and 0.5
// for a differing filename against every already-selected result. The
// accumulation is deliberately unnormalized — with many distinct prior
// selections the diversity term dominates, biasing later slots toward
// unseen sources. A weight of 0 reproduces the input (pure relevance)
// order.
func RankByDiversity(results []rag.SearchResult, weight float64) []rag.SearchResult {
	if len(results) <= 1 {
		return results
	}

	ranked := make([]rag.SearchResult, 0, len(results))
	ranked = append(ranked, results[0])

	remaining := make([]rag.SearchResult, len(results)-1)
	copy(remaining, results[1:])

	for len(remaining) > 0 {
		bestScore := -1.0
		bestIdx := 0

		for idx, candidate := range remaining {
			diversity := 0.0
			for _, selected := range ranked {
				if candidate.Metadata.GetString("repo_name") != selected.Metadata.GetString("repo_name") {
					diversity += 0.5
				}
				if candidate.Metadata.GetString("filename") != selected.Metadata.GetString("filename") {
					diversity += 0.5
				}
			}

			combined := (1-weight)*float64(candidate.Score) + weight*diversity
			if combined > bestScore {
				bestScore = combined
				bestIdx = idx
			}
		}

		ranked = append(ranked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return ranked
}
