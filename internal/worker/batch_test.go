package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alterego-ai/alterego/internal/model"
)

type fakeAnalyzer struct {
	failOn string
}

func (f *fakeAnalyzer) AnalyzeFile(ctx context.Context, path string) (*model.AnalysisReport, error) {
	if path == f.failOn {
		return nil, fmt.Errorf("analyze %s: boom", path)
	}
	return &model.AnalysisReport{Subject: filepath.Base(path), Source: path}, nil
}

func TestBatchProcessorProcessPaths(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{}, 3)

	paths := []string{"a.txt", "b.txt", "c.txt"}
	results := processor.ProcessPaths(context.Background(), paths)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Error != nil {
			t.Errorf("Expected no error for %s, got %v", r.Path, r.Error)
		}
		if r.Report == nil || r.Report.Source != r.Path {
			t.Errorf("Expected report for %s, got %+v", r.Path, r.Report)
		}
	}
}

func TestBatchProcessorPartialFailure(t *testing.T) {
	processor := NewBatchProcessor(&fakeAnalyzer{failOn: "bad.txt"}, 2)

	results := processor.ProcessPaths(context.Background(), []string{"ok.txt", "bad.txt"})

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	failures := 0
	for _, r := range results {
		if r.Error != nil {
			failures++
			if r.Path != "bad.txt" {
				t.Errorf("Expected failure on bad.txt, got %s", r.Path)
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected 1 failure, got %d", failures)
	}
}

func TestReadPathsFromFile(t *testing.T) {
	content := strings.Join([]string{
		"# documents to anonymize",
		"notes/journal.txt",
		"",
		"posts/draft.md",
		"notes/journal.txt", // duplicate
	}, "\n")

	manifest := filepath.Join(t.TempDir(), "manifest.txt")
	if err := os.WriteFile(manifest, []byte(content), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	paths, err := ReadPathsFromFile(manifest)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("Expected 2 deduplicated paths, got %d: %v", len(paths), paths)
	}
	if paths[0] != "notes/journal.txt" || paths[1] != "posts/draft.md" {
		t.Errorf("Unexpected paths: %v", paths)
	}
}

func TestReadPathsFromFileMissing(t *testing.T) {
	if _, err := ReadPathsFromFile("/nonexistent/manifest.txt"); err == nil {
		t.Error("Expected error for missing file")
	}
}
