package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/leofalp/polprofile/internal/utils"
	"github.com/leofalp/polprofile/providers/tool"
)

const (
	// ToolName is the name the model uses to call the fetch tool.
	ToolName = "WebFetch"
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second
	// DefaultUserAgent is the default User-Agent header value
	DefaultUserAgent = "polprofile-webfetch/1.0"
	// MaxBodySize is the maximum response body size (10MB)
	MaxBodySize = 10 * 1024 * 1024
	// DefaultMaxMarkdownChars caps the Markdown handed back to the model so a
	// single verification fetch cannot flood the validation prompt.
	DefaultMaxMarkdownChars = 20000
	maxRedirects            = 10
	maxTimeoutSeconds       = 300
)

// ErrEmptyURL is returned when the model calls the tool without a URL.
var ErrEmptyURL = errors.New("webfetch: URL cannot be empty")

// Input holds the parameters passed to the fetch tool by the language model.
type Input struct {
	URL            string `json:"url" jsonschema:"description=The URL of the page to fetch; partial URLs like 'pib.gov.in' get an https:// prefix,required"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"description=Request timeout in seconds (default 30; max 300)"`
}

// Output holds the result returned to the language model.
// URL reflects the final destination after all HTTP redirects.
type Output struct {
	URL       string `json:"url" jsonschema:"description=The final URL after redirects"`
	Title     string `json:"title,omitempty" jsonschema:"description=Content of the page's <title> element when present"`
	Markdown  string `json:"markdown" jsonschema:"description=The page content converted to Markdown"`
	Truncated bool   `json:"truncated,omitempty" jsonschema:"description=True when the Markdown was cut to fit the size cap"`
}

// Fetcher retrieves pages and converts them to Markdown. The zero value is
// not usable; construct one with [NewFetcher].
type Fetcher struct {
	httpClient       *http.Client
	userAgent        string
	maxMarkdownChars int
}

// Option configures a [Fetcher].
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client. The fetcher still
// installs its redirect policy on a shallow copy of the client.
func WithHTTPClient(client *http.Client) Option {
	return func(fetcher *Fetcher) {
		if client != nil {
			fetcher.httpClient = client
		}
	}
}

// WithUserAgent overrides [DefaultUserAgent].
func WithUserAgent(userAgent string) Option {
	return func(fetcher *Fetcher) {
		fetcher.userAgent = userAgent
	}
}

// WithMaxMarkdownChars overrides [DefaultMaxMarkdownChars]. Values <= 0
// disable truncation.
func WithMaxMarkdownChars(limit int) Option {
	return func(fetcher *Fetcher) {
		fetcher.maxMarkdownChars = limit
	}
}

// NewFetcher returns a Fetcher with a transport tuned for slow government
// sites: bounded dial, TLS and header timeouts.
func NewFetcher(options ...Option) *Fetcher {
	fetcher := &Fetcher{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				MaxIdleConnsPerHost:   4,
				ForceAttemptHTTP2:     true,
			},
		},
		userAgent:        DefaultUserAgent,
		maxMarkdownChars: DefaultMaxMarkdownChars,
	}
	for _, option := range options {
		option(fetcher)
	}

	client := *fetcher.httpClient
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects (>%d)", maxRedirects)
		}
		return nil
	}
	fetcher.httpClient = &client
	return fetcher
}

// NewWebFetchTool wraps a [Fetcher] as a [tool.Tool] the client can expose
// to the model.
//
// Example:
//
//	fetchTool, _ := webfetch.NewWebFetchTool(webfetch.NewFetcher())
//	catalog := tool.NewCatalog(fetchTool)
func NewWebFetchTool(fetcher *Fetcher) (*tool.Tool[Input, Output], error) {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	return tool.NewTool(
		ToolName,
		fetcher.Fetch,
		tool.WithDescription("Fetches a web page and returns its content as Markdown. Use it to verify claims against official sources. Partial URLs get an https:// prefix."),
	)
}

// Fetch retrieves the page at input.URL and returns its content as Markdown.
//
// Fetch returns an error when the URL is empty or not http(s), the status
// code is not 200 OK, the body exceeds [MaxBodySize], conversion fails, or
// the context is cancelled or times out.
func (fetcher *Fetcher) Fetch(ctx context.Context, input Input) (Output, error) {
	target, err := normalizeURL(input.URL)
	if err != nil {
		return Output{}, err
	}

	timeout := DefaultTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(min(input.TimeoutSeconds, maxTimeoutSeconds)) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Output{}, fmt.Errorf("webfetch: create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", fetcher.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := fetcher.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Output{}, fmt.Errorf("webfetch: request timeout or canceled: %w", err)
		}
		return Output{}, fmt.Errorf("webfetch: fetch %s: %w", target, err)
	}
	defer utils.CloseWithLog(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return Output{}, &utils.StatusError{StatusCode: resp.StatusCode, Body: resp.Status}
	}

	htmlBytes, err := readBody(ctx, resp.Body)
	if err != nil {
		return Output{}, err
	}

	markdown, err := htmltomarkdown.ConvertString(string(htmlBytes))
	if err != nil {
		return Output{}, fmt.Errorf("webfetch: convert HTML to Markdown: %w", err)
	}

	output := Output{
		URL:      resp.Request.URL.String(),
		Title:    extractTitle(string(htmlBytes)),
		Markdown: strings.TrimSpace(markdown),
	}
	if fetcher.maxMarkdownChars > 0 {
		if runes := []rune(output.Markdown); len(runes) > fetcher.maxMarkdownChars {
			output.Markdown = string(runes[:fetcher.maxMarkdownChars])
			output.Truncated = true
		}
	}
	return output, nil
}

func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("webfetch: invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("webfetch: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("webfetch: URL %q has no host", raw)
	}
	return parsed.String(), nil
}

// readBody reads in a goroutine so cancellation is honoured during slow reads.
func readBody(ctx context.Context, body io.Reader) ([]byte, error) {
	type readResult struct {
		data []byte
		err  error
	}

	readChan := make(chan readResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(body, MaxBodySize+1))
		readChan <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("webfetch: timeout while reading response body: %w", ctx.Err())
	case result := <-readChan:
		if result.err != nil {
			return nil, fmt.Errorf("webfetch: read response body: %w", result.err)
		}
		if len(result.data) > MaxBodySize {
			return nil, fmt.Errorf("webfetch: response body exceeds maximum size of %d bytes", MaxBodySize)
		}
		return result.data, nil
	}
}

func extractTitle(html string) string {
	lower := strings.ToLower(html)
	start := strings.Index(lower, "<title")
	if start < 0 {
		return ""
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return ""
	}
	contentStart := start + open + 1
	end := strings.Index(lower[contentStart:], "</title>")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(html[contentStart : contentStart+end])
}
