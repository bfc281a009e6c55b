package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IyadElwy/AiBookSummarizer/internal/services"
)

const maxBodyBytes = 8 << 20

// errNotFound marks a 404 so adapters can report it as empty.
var errNotFound = errors.New("resource not found")

// Option configures an adapter.
type Option func(*httpClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *httpClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(userAgent string) Option {
	return func(c *httpClient) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			c.userAgent = ua
		}
	}
}

type httpClient struct {
	client    *http.Client
	userAgent string
	headers   http.Header
}

func newHTTPClient(opts []Option) *httpClient {
	c := &httpClient{
		client:    &http.Client{Timeout: 60 * time.Second},
		userAgent: "booksum",
		headers:   http.Header{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) get(ctx context.Context, kind Kind, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, string(kind), "request", fmt.Sprintf("GET %s (latency=%v)", rawURL, latency), err)
		}
		return nil, services.Wrap(services.ErrExternal, string(kind), "request", fmt.Sprintf("GET %s (latency=%v)", rawURL, latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(
			services.ErrExternal,
			string(kind),
			"request",
			fmt.Sprintf("GET %s returned %d", rawURL, resp.StatusCode),
			errors.New(strings.TrimSpace(string(snippet))),
		)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, string(kind), "read body", rawURL, err)
	}
	return body, nil
}

func (c *httpClient) getJSON(ctx context.Context, kind Kind, rawURL string, v any) error {
	body, err := c.get(ctx, kind, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return services.Wrap(services.ErrExternal, string(kind), "decode json", rawURL, err)
	}
	return nil
}

func (c *httpClient) getDocument(ctx context.Context, kind Kind, rawURL string) (*goquery.Document, error) {
	body, err := c.get(ctx, kind, rawURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, string(kind), "parse html", rawURL, err)
	}
	return doc, nil
}

// firstText returns the trimmed text of the first selector that matches.
func firstText(doc *goquery.Document, selectors ...string) string {
	return firstTextIn(doc.Selection, selectors...)
}

func firstTextIn(scope *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if node := scope.Find(sel).First(); node.Length() > 0 {
			if text := cleanSpace(node.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// collectTexts gathers distinct non-empty texts for sel, up to limit (0 = all).
func collectTexts(sel *goquery.Selection, limit int) []string {
	var out []string
	seen := map[string]struct{}{}
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := cleanSpace(s.Text())
		if text == "" {
			return true
		}
		if _, ok := seen[text]; ok {
			return true
		}
		seen[text] = struct{}{}
		out = append(out, text)
		return limit <= 0 || len(out) < limit
	})
	return out
}

func cleanSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sections accumulates "Label: value" blocks, skipping empty values.
type sections []string

func (s *sections) add(label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*s = append(*s, label+": "+value)
	}
}

func (s *sections) addList(label string, values []string) {
	if len(values) > 0 {
		s.add(label, strings.Join(values, ", "))
	}
}

func (s *sections) addJoined(prefix, sep string, parts []string) {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return
	}
	if prefix != "" {
		*s = append(*s, prefix+": "+strings.Join(kept, sep))
		return
	}
	*s = append(*s, strings.Join(kept, sep))
}

func (s sections) join(sep string) string {
	return strings.Join(s, sep)
}

func labelled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + ": " + strings.TrimSpace(value)
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(base, "/") + href
	}
	return href
}
