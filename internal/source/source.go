// Package source loads local files and directories into documents ready for
// ingestion. Each document pairs the file's text with raw metadata that the
// pipeline sanitizes before indexing.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxFileSize skips files larger than this; oversized blobs are almost never
// useful retrieval content and bloat the index.
const maxFileSize = 1 << 20 // 1 MiB

// recognizedExtensions lists the file types treated as ingestible text.
var recognizedExtensions = map[string]bool{
	".c": true, ".cpp": true, ".cs": true, ".css": true, ".go": true,
	".h": true, ".hpp": true, ".html": true, ".java": true, ".js": true,
	".json": true, ".jsx": true, ".kt": true, ".md": true, ".php": true,
	".proto": true, ".py": true, ".rb": true, ".rs": true, ".scala": true,
	".sh": true, ".sql": true, ".swift": true, ".toml": true, ".ts": true,
	".tsx": true, ".txt": true, ".yaml": true, ".yml": true,
}

// Document is one loaded file: its text plus raw ingestion metadata.
type Document struct {
	// Text is the full file content.
	Text string

	// Metadata carries filename, file_path, file_extension, file_size,
	// repo_name, and processed_at. Values are raw; the ingestion pipeline
	// sanitizes them before indexing.
	Metadata map[string]any
}

// Recognized reports whether the file extension is an ingestible type.
func Recognized(path string) bool {
	return recognizedExtensions[strings.ToLower(filepath.Ext(path))]
}

// LoadFile reads one file into a Document. repoName labels the logical
// repository the file belongs to.
func LoadFile(path, repoName string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, fmt.Errorf("source: stat %s: %w", path, err)
	}
	if info.Size() > maxFileSize {
		return Document{}, fmt.Errorf("source: %s exceeds the %d byte limit", path, maxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("source: read %s: %w", path, err)
	}

	return Document{
		Text: string(content),
		Metadata: map[string]any{
			"filename":       filepath.Base(path),
			"file_path":      path,
			"file_extension": strings.ToLower(filepath.Ext(path)),
			"file_size":      info.Size(),
			"repo_name":      repoName,
			"repo_full_name": repoName,
			"processed_at":   time.Now().UTC().Format(time.RFC3339),
		},
	}, nil
}

// LoadDir walks dir recursively and loads every recognized file. Hidden
// directories (".git" and friends) are skipped. Files that fail to load are
// skipped via the optional skip callback rather than aborting the walk.
func LoadDir(dir, repoName string, skip func(path string, err error)) ([]Document, error) {
	if skip == nil {
		skip = func(string, error) {}
	}

	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			skip(path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !Recognized(path) {
			return nil
		}

		doc, err := LoadFile(path, repoName)
		if err != nil {
			skip(path, err)
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: walk %s: %w", dir, err)
	}
	return docs, nil
}
