package render

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDF renders the extracted text of each page under a "Page N" heading.
type PDF struct{}

func (p *PDF) Render(src []byte, filename string) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filename, err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "<h2>Page %d</h2>\n", i)
		sb.WriteString(paragraphsToStorage(splitParagraphs(text)))
	}
	return sb.String(), nil
}

func splitParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			out = append(out, para)
		}
	}
	return out
}
