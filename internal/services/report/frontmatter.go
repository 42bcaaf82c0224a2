package report

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/valuator/internal/models"
)

// frontMatter is the YAML header written at the top of markdown reports
type frontMatter struct {
	ReportType  models.ReportKind `yaml:"report_type"`
	Symbols     []string          `yaml:"symbols"`
	GeneratedAt string            `yaml:"generated_at"`
	Grade       string            `yaml:"grade,omitempty"`
}

func withFrontMatter(meta frontMatter, body string) (string, error) {
	header, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}
	return "---\n" + string(header) + "---\n\n" + body, nil
}

// splitFrontMatter separates a leading YAML block from the markdown body.
// ok is false when the content has no well-formed front matter.
func splitFrontMatter(content []byte) (frontMatter, string, bool) {
	var meta frontMatter
	text := string(content)
	if !strings.HasPrefix(text, "---\n") {
		return meta, text, false
	}

	end := strings.Index(text[4:], "\n---\n")
	if end == -1 {
		return meta, text, false
	}

	if err := yaml.NewDecoder(bytes.NewReader([]byte(text[4 : 4+end+1]))).Decode(&meta); err != nil {
		return frontMatter{}, text, false
	}
	return meta, strings.TrimLeft(text[4+end+5:], "\n"), true
}
