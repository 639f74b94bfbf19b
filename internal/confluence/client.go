package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client talks to the wiki's content REST API.
type Client struct {
	baseURL    string
	username   string
	password   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	stats      *CallStats
	backoff    func(attempt int) time.Duration
}

// Options configures a Client. Token takes precedence over basic auth.
type Options struct {
	Username  string
	Password  string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 for unlimited
	Stats     *CallStats
}

// NewClient returns a client for the wiki at baseURL. A URL pointing at the
// content endpoint itself (".../rest/api/content") is accepted too.
func NewClient(baseURL string, opts Options) *Client {
	base := strings.TrimRight(baseURL, "/")
	base = strings.TrimSuffix(base, "/content")
	base = strings.TrimSuffix(base, "/rest/api")

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	stats := opts.Stats
	if stats == nil {
		stats = NewCallStats(time.Hour)
	}

	return &Client{
		baseURL:  base + "/rest/api",
		username: opts.Username,
		password: opts.Password,
		token:    opts.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		stats:   stats,
		backoff: Backoff,
	}
}

// Ancestor is one entry of a page's ancestor chain.
type Ancestor struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Page is a remote page as returned by a single lookup. Ancestors are only
// populated when the lookup asked for them.
type Page struct {
	ID        string
	Title     string
	SpaceKey  string
	Version   int
	Ancestors []Ancestor
}

// ParentTitle is the title of the immediate parent, or "" for a page at the
// space root or one fetched without ancestors.
func (p *Page) ParentTitle() string {
	if len(p.Ancestors) == 0 {
		return ""
	}
	return p.Ancestors[len(p.Ancestors)-1].Title
}

type spaceRef struct {
	Key string `json:"key"`
}

type versionRef struct {
	Number int `json:"number"`
}

type storageBody struct {
	Storage struct {
		Value          string `json:"value"`
		Representation string `json:"representation"`
	} `json:"storage"`
}

type content struct {
	ID        string       `json:"id,omitempty"`
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Space     *spaceRef    `json:"space,omitempty"`
	Version   *versionRef  `json:"version,omitempty"`
	Ancestors []Ancestor   `json:"ancestors,omitempty"`
	Body      *storageBody `json:"body,omitempty"`
}

func (c content) page() *Page {
	p := &Page{ID: c.ID, Title: c.Title, Ancestors: c.Ancestors}
	if c.Space != nil {
		p.SpaceKey = c.Space.Key
	}
	if c.Version != nil {
		p.Version = c.Version.Number
	}
	return p
}

func newStorageBody(value string) *storageBody {
	b := &storageBody{}
	b.Storage.Value = value
	b.Storage.Representation = "storage"
	return b
}

// GetPageByTitle looks a page up by title. It returns nil, nil when no page
// has that title and ErrAmbiguousTitle when several do.
func (c *Client) GetPageByTitle(ctx context.Context, spaceKey, title string, expandAncestors bool) (*Page, error) {
	expand := "version,space"
	if expandAncestors {
		expand += ",ancestors"
	}
	q := url.Values{}
	q.Set("spaceKey", spaceKey)
	q.Set("title", title)
	q.Set("type", "page")
	q.Set("expand", expand)

	var result struct {
		Results []content `json:"results"`
	}
	if err := c.do(ctx, "get_page", http.MethodGet, "/content?"+q.Encode(), nil, "", &result); err != nil {
		return nil, err
	}
	switch len(result.Results) {
	case 0:
		return nil, nil
	case 1:
		return result.Results[0].page(), nil
	default:
		return nil, fmt.Errorf("get page %q in %s: %w (%d matches)", title, spaceKey, ErrAmbiguousTitle, len(result.Results))
	}
}

// CreatePage creates a page under parentID (at the space root when empty).
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, body, parentID string) (*Page, error) {
	req := content{
		Type:  "page",
		Title: title,
		Space: &spaceRef{Key: spaceKey},
		Body:  newStorageBody(body),
	}
	if parentID != "" {
		req.Ancestors = []Ancestor{{ID: parentID}}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}

	var created content
	if err := c.do(ctx, "create_page", http.MethodPost, "/content", payload, "application/json", &created); err != nil {
		return nil, err
	}
	return created.page(), nil
}

// UpdatePage replaces the body of an existing page, bumping its version.
func (c *Client) UpdatePage(ctx context.Context, page *Page, body string) (*Page, error) {
	req := content{
		ID:      page.ID,
		Type:    "page",
		Title:   page.Title,
		Version: &versionRef{Number: page.Version + 1},
		Body:    newStorageBody(body),
	}
	if page.SpaceKey != "" {
		req.Space = &spaceRef{Key: page.SpaceKey}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal page: %w", err)
	}

	var updated content
	if err := c.do(ctx, "update_page", http.MethodPut, "/content/"+url.PathEscape(page.ID), payload, "application/json", &updated); err != nil {
		return nil, err
	}
	return updated.page(), nil
}

// GetAncestors returns the ancestor chain of a page, root first.
func (c *Client) GetAncestors(ctx context.Context, pageID string) ([]Ancestor, error) {
	var result content
	if err := c.do(ctx, "get_ancestors", http.MethodGet, "/content/"+url.PathEscape(pageID)+"?expand=ancestors", nil, "", &result); err != nil {
		return nil, err
	}
	return result.Ancestors, nil
}

// UploadAttachment adds filename to the page, replacing an attachment of the
// same name.
func (c *Client) UploadAttachment(ctx context.Context, pageID, filename string, data []byte, contentType string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	if err := mw.WriteField("minorEdit", "true"); err != nil {
		return fmt.Errorf("write multipart field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	return c.do(ctx, "upload_attachment", http.MethodPut, "/content/"+url.PathEscape(pageID)+"/child/attachment", buf.Bytes(), mw.FormDataContentType(), nil)
}

// Stats exposes the client's call latency window.
func (c *Client) Stats() *CallStats {
	return c.stats
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// do runs one API call, repeating it on 429/5xx up to MaxRetries times.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, contentType string, out any) error {
	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := c.doOnce(ctx, op, method, path, body, contentType, out)
		c.stats.Record(op, time.Since(start), err)
		if err == nil || !IsRetryable(err) || attempt+1 >= MaxRetries {
			return err
		}
		select {
		case <-time.After(c.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) doOnce(ctx context.Context, op, method, path string, body []byte, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limit: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if op == "upload_attachment" {
		req.Header.Set("X-Atlassian-Token", "no-check")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
