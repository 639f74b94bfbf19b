package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSV renders a CSV file as a table; the first row becomes the header.
type CSV struct{}

func (p *CSV) Render(src []byte, filename string) (string, error) {
	reader := csv.NewReader(bytes.NewReader(src))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv %s: %w", filename, err)
	}
	if len(records) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("<table><tbody>\n")
	writeRow(&sb, "th", records[0])
	for _, row := range records[1:] {
		writeRow(&sb, "td", row)
	}
	sb.WriteString("</tbody></table>\n")
	return sb.String(), nil
}

func writeRow(sb *strings.Builder, cell string, row []string) {
	sb.WriteString("<tr>")
	for _, v := range row {
		sb.WriteString("<" + cell + ">")
		sb.WriteString(escapeText(v))
		sb.WriteString("</" + cell + ">")
	}
	sb.WriteString("</tr>\n")
}
