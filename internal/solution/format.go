package solution

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names one of the three rendering styles a SourceFile or
// Solution can be serialized as for an LLM prompt.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatXML      Format = "xml"
	FormatPlain    Format = "plain"
)

// FormatOptions controls FormatAs rendering.
type FormatOptions struct {
	// LineNumbers prefixes each line with its 1-based line number.
	LineNumbers bool
	// MaxLines truncates the body after this many lines, appending a
	// "... (N more lines)" notice. Zero means no truncation.
	MaxLines int
	// WorkingDir, if set, makes the displayed path relative to it.
	WorkingDir string
}

func displayPath(path, workingDir string) string {
	if workingDir == "" {
		return path
	}
	rel, err := filepath.Rel(workingDir, path)
	if err != nil {
		return path
	}
	return rel
}

func renderBody(content string, opts FormatOptions) string {
	lines := strings.Split(content, "\n")
	truncated := false
	if opts.MaxLines > 0 && len(lines) > opts.MaxLines {
		truncated = true
		lines = lines[:opts.MaxLines]
	}
	if opts.LineNumbers {
		for i, l := range lines {
			lines[i] = fmt.Sprintf("%4d | %s", i+1, l)
		}
	}
	body := strings.Join(lines, "\n")
	if truncated {
		more := len(strings.Split(content, "\n")) - opts.MaxLines
		body += fmt.Sprintf("\n... (%d more lines)", more)
	}
	return body
}

// FormatAs renders this file in the given style.
func (s *SourceFile) FormatAs(format Format, opts FormatOptions) string {
	path := displayPath(s.Path, opts.WorkingDir)
	body := renderBody(s.Content, opts)
	switch format {
	case FormatXML:
		return fmt.Sprintf("<file path='%s'>\n%s\n</file>", path, body)
	case FormatPlain:
		return fmt.Sprintf("File: %s\n%s", path, body)
	default: // FormatMarkdown
		lang := strings.TrimPrefix(s.FileExtension(), ".")
		return fmt.Sprintf("%s\n```%s\n%s\n```", path, lang, body)
	}
}
