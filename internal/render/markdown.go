package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Markdown renders Markdown into storage format using goldmark. Output is
// XHTML, raw HTML passes through, and code blocks become code macros.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithXHTML(),
				gmhtml.WithUnsafe(),
				renderer.WithNodeRenderers(util.Prioritized(&codeMacroRenderer{}, 100)),
			),
		),
	}
}

func (m *Markdown) Render(src []byte, filename string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(stripFrontMatter(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown %s: %w", filename, err)
	}
	return buf.String(), nil
}

// stripFrontMatter drops a leading YAML metadata block delimited by "---".
func stripFrontMatter(src []byte) []byte {
	s := string(src)
	if !strings.HasPrefix(s, "---\n") && !strings.HasPrefix(s, "---\r\n") {
		return src
	}
	rest := s[strings.Index(s, "\n")+1:]
	for off := 0; off < len(rest); {
		nl := strings.Index(rest[off:], "\n")
		line := rest[off:]
		if nl >= 0 {
			line = rest[off : off+nl]
		}
		if strings.TrimRight(line, "\r") == "---" {
			if nl < 0 {
				return nil
			}
			return []byte(rest[off+nl+1:])
		}
		if nl < 0 {
			break
		}
		off += nl + 1
	}
	return src
}

// codeMacroRenderer emits fenced and indented code blocks as the wiki's code
// macro instead of <pre><code>.
type codeMacroRenderer struct{}

func (r *codeMacroRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderCode)
	reg.Register(ast.KindCodeBlock, r.renderCode)
}

func (r *codeMacroRenderer) renderCode(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var lang string
	if fenced, ok := node.(*ast.FencedCodeBlock); ok {
		if l := fenced.Language(source); l != nil {
			lang = string(l)
		}
	}

	var body bytes.Buffer
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		body.Write(line.Value(source))
	}

	_, _ = w.WriteString(`<ac:structured-macro ac:name="code">`)
	if lang != "" {
		_, _ = w.WriteString(`<ac:parameter ac:name="language">`)
		_, _ = w.WriteString(escapeText(lang))
		_, _ = w.WriteString(`</ac:parameter>`)
	}
	_, _ = w.WriteString(`<ac:plain-text-body><![CDATA[`)
	_, _ = w.WriteString(strings.ReplaceAll(body.String(), "]]>", "]]]]><![CDATA[>"))
	_, _ = w.WriteString("]]></ac:plain-text-body></ac:structured-macro>\n")
	return ast.WalkSkipChildren, nil
}
