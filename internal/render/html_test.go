package render

import (
	"strings"
	"testing"
)

func TestHTML_KeepsBodyDropsChrome(t *testing.T) {
	src := `<html><head><title>x</title><style>p{}</style></head><body>
<nav>menu</nav>
<h1>Guide</h1>
<div><script>alert(1)</script><p>Keep me</p><!-- note --></div>
<footer>bye</footer>
</body></html>`

	out, err := (&HTML{}).Render([]byte(src), "guide.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<h1>Guide</h1>") || !strings.Contains(out, "<p>Keep me</p>") {
		t.Errorf("expected body content, got %s", out)
	}
	for _, gone := range []string{"menu", "alert", "note", "bye", "<title>"} {
		if strings.Contains(out, gone) {
			t.Errorf("expected %q to be stripped, got %s", gone, out)
		}
	}
}

func TestCSV_Table(t *testing.T) {
	out, err := (&CSV{}).Render([]byte("name,size\nlogo.png,3 <kb>\n"), "assets.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "<tr><th>name</th><th>size</th></tr>") {
		t.Errorf("expected header row, got %s", out)
	}
	if !strings.Contains(out, "<td>3 &lt;kb&gt;</td>") {
		t.Errorf("expected escaped cell, got %s", out)
	}
}

func TestCSV_Empty(t *testing.T) {
	out, err := (&CSV{}).Render(nil, "empty.csv")
	if err != nil || out != "" {
		t.Errorf("expected empty output, got %q, %v", out, err)
	}
}
