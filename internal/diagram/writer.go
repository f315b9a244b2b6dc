package diagram

import (
	"fmt"
	"os"
	"path/filepath"
)

// MarkdownDocument wraps rendered Mermaid text in the fixed markdown
// envelope: a heading, a mermaid code fence, and a closing fence.
func MarkdownDocument(mermaidText string) string {
	return "# State Logic Diagram\n\n```mermaid\n" + mermaidText + "\n```\n"
}

// WriteMarkdown writes the envelope document to disk. The write goes
// through a temp file and a rename so a failed run never leaves a partial
// document at the destination.
func WriteMarkdown(path, mermaidText string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".diagram-*.md")
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(MarkdownDocument(mermaidText)); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing diagram: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing diagram: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing diagram: %w", err)
	}
	return nil
}
