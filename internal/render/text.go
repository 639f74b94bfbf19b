package render

import (
	"bufio"
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Text renders plain text files, one <p> per blank-line separated paragraph.
type Text struct{}

func (p *Text) Render(src []byte, filename string) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	return paragraphsToStorage(paragraphs), nil
}

// paragraphsToStorage escapes each paragraph and keeps its line breaks.
func paragraphsToStorage(paragraphs []string) string {
	var sb strings.Builder
	for _, para := range paragraphs {
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = escapeText(l)
		}
		sb.WriteString("<p>")
		sb.WriteString(strings.Join(lines, "<br />"))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

func escapeText(s string) string {
	return html.EscapeString(s)
}
