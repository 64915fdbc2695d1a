package service

import (
	"path"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// CountLines returns the number of lines in text. An empty text has zero
// lines and a final line without a terminator still counts. "\n", "\r\n"
// and a lone "\r" all end a line.
func CountLines(text string) int {
	if text == "" {
		return 0
	}

	lines := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines++
		case '\r':
			lines++
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
		}
	}

	last := text[len(text)-1]
	if last != '\n' && last != '\r' {
		lines++
	}
	return lines
}

var defaultSourceExtensions = []string{
	".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c", ".h", ".cpp",
	".cc", ".hpp", ".cs", ".rb", ".php", ".rs", ".swift", ".kt", ".kts",
	".scala", ".m", ".mm", ".sh", ".bash", ".lua", ".r", ".dart", ".ex",
	".exs", ".erl", ".hs", ".clj", ".vue", ".svelte", ".html", ".htm", ".css",
	".scss", ".sass", ".less", ".sql", ".pl", ".groovy", ".md",
}

// SourceClassifier decides which files count as source code.
type SourceClassifier struct {
	extensions map[string]struct{}
}

// NewSourceClassifier builds a classifier from an extension allow-list.
// Entries are matched case-insensitively; a missing leading dot is added.
// An empty list selects the built-in allow-list.
func NewSourceClassifier(extensions []string) *SourceClassifier {
	if len(extensions) == 0 {
		extensions = defaultSourceExtensions
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return &SourceClassifier{extensions: set}
}

func (c *SourceClassifier) IsSource(filePath string) bool {
	ext := strings.ToLower(path.Ext(filePath))
	if ext == "" {
		return false
	}
	_, ok := c.extensions[ext]
	return ok
}

// Extensions lists the allow-list, sorted.
func (c *SourceClassifier) Extensions() []string {
	out := make([]string, 0, len(c.extensions))
	for ext := range c.extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Language labels a file for the per-language breakdown.
func (c *SourceClassifier) Language(filePath string) string {
	lang, _ := enry.GetLanguageByExtension(path.Base(filePath))
	if lang == "" {
		return "Other"
	}
	return lang
}
