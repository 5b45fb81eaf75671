package structure

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---\n"

// parseFrontmatter splits a document into its YAML header and body. A
// document without a leading fence has an empty header.
func parseFrontmatter(data []byte) (map[string]any, string, error) {
	s := string(data)
	if !strings.HasPrefix(s, fence) {
		return map[string]any{}, s, nil
	}
	rest := s[len(fence):]

	var header, body string
	switch {
	case strings.HasPrefix(rest, fence):
		body = rest[len(fence):]
	case strings.Contains(rest, "\n"+fence):
		i := strings.Index(rest, "\n"+fence)
		header = rest[:i+1]
		body = rest[i+1+len(fence):]
	case strings.HasSuffix(rest, "\n---"):
		header = rest[:len(rest)-len("---")]
	default:
		return nil, "", fmt.Errorf("unterminated frontmatter")
	}

	h := map[string]any{}
	if err := yaml.Unmarshal([]byte(header), &h); err != nil {
		return nil, "", fmt.Errorf("frontmatter: %w", err)
	}
	if h == nil {
		h = map[string]any{}
	}
	return h, body, nil
}

// renderFrontmatter is the inverse of parseFrontmatter. Keys are emitted in
// sorted order, so equal headers render to equal bytes.
func renderFrontmatter(header map[string]any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fence)
	if len(header) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(header); err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding frontmatter: %w", err)
		}
	}
	buf.WriteString(fence)
	buf.WriteString(body)
	return buf.Bytes(), nil
}
