package render

import (
	"errors"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// ImageHeight is the display height given to embedded attachment images.
const ImageHeight = "350"

// RewriteImages replaces <img> tags that point at local files with the
// wiki's attachment image markup and returns the referenced local paths in
// first-seen order. Relative sources resolve against baseDir; file:// URLs
// are taken as-is. Remote and data: sources are left untouched. Everything
// else in body is copied through byte for byte.
func RewriteImages(body, baseDir string) (string, []string) {
	z := html.NewTokenizer(strings.NewReader(body))
	z.AllowCDATA(true)

	var out strings.Builder
	var assets []string
	seen := make(map[string]bool)

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				// Unparseable tail: keep it as-is.
				out.Write(z.Raw())
			}
			break
		}
		raw := string(z.Raw())
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.WriteString(raw)
			continue
		}

		name, hasAttr := z.TagName()
		if string(name) != "img" || !hasAttr {
			out.WriteString(raw)
			continue
		}

		var src, alt string
		for {
			key, val, more := z.TagAttr()
			switch string(key) {
			case "src":
				src = string(val)
			case "alt":
				alt = string(val)
			}
			if !more {
				break
			}
		}

		local, ok := localAssetPath(src, baseDir)
		if !ok {
			out.WriteString(raw)
			continue
		}
		if !seen[local] {
			seen[local] = true
			assets = append(assets, local)
		}
		out.WriteString(attachmentImage(filepath.Base(local), alt))
	}

	return out.String(), assets
}

func attachmentImage(filename, alt string) string {
	var sb strings.Builder
	sb.WriteString(`<ac:image ac:height="` + ImageHeight + `"`)
	if alt != "" {
		sb.WriteString(` ac:alt="` + html.EscapeString(alt) + `"`)
	}
	sb.WriteString(`><ri:attachment ri:filename="`)
	sb.WriteString(html.EscapeString(filename))
	sb.WriteString(`" /></ac:image>`)
	return sb.String()
}

// localAssetPath reports whether src names a file on the local disk and
// returns its path.
func localAssetPath(src, baseDir string) (string, bool) {
	if src == "" {
		return "", false
	}
	if strings.HasPrefix(src, "file://") {
		p := strings.TrimPrefix(src, "file://")
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
		return filepath.FromSlash(p), p != ""
	}

	u, err := url.Parse(src)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	if path.IsAbs(u.Path) {
		// Site-root URLs depend on where the site is served from.
		return "", false
	}
	return filepath.Join(baseDir, filepath.FromSlash(u.Path)), true
}
