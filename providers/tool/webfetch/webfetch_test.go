package webfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leofalp/polprofile/internal/utils"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Member Profile | Lok Sabha</title></head>
<body>
	<h1>Shri Example Kumar</h1>
	<p>Member of Parliament from <strong>Varanasi</strong>.</p>
	<ul>
		<li>Party: Example Party</li>
		<li>Term: 2024 onwards</li>
	</ul>
</body>
</html>`

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetch_Success(t *testing.T) {
	server := htmlServer(t, samplePage)

	output, err := NewFetcher().Fetch(context.Background(), Input{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if output.URL != server.URL {
		t.Errorf("expected URL %s, got %s", server.URL, output.URL)
	}
	if output.Title != "Member Profile | Lok Sabha" {
		t.Errorf("unexpected title %q", output.Title)
	}
	for _, want := range []string{"Shri Example Kumar", "Varanasi", "Party: Example Party"} {
		if !strings.Contains(output.Markdown, want) {
			t.Errorf("markdown missing %q:\n%s", want, output.Markdown)
		}
	}
	if output.Truncated {
		t.Error("short page must not be truncated")
	}
}

func TestFetch_InvalidURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		check func(error) bool
	}{
		{name: "empty", url: "", check: func(err error) bool { return errors.Is(err, ErrEmptyURL) }},
		{name: "whitespace", url: "   ", check: func(err error) bool { return errors.Is(err, ErrEmptyURL) }},
		{name: "ftp scheme", url: "ftp://example.com", check: func(err error) bool { return strings.Contains(err.Error(), "unsupported scheme") }},
		{name: "file scheme", url: "file:///etc/passwd", check: func(err error) bool { return strings.Contains(err.Error(), "unsupported scheme") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFetcher().Fetch(context.Background(), Input{URL: tt.url})
			if err == nil {
				t.Fatal("expected an error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	got, err := normalizeURL("  pib.gov.in/profile  ")
	if err != nil {
		t.Fatalf("normalizeURL: %v", err)
	}
	if got != "https://pib.gov.in/profile" {
		t.Errorf("got %q", got)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher().Fetch(context.Background(), Input{URL: server.URL})

	var statusErr *utils.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *utils.StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", statusErr.StatusCode)
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewFetcher().Fetch(ctx, Input{URL: server.URL})
	if err == nil {
		t.Fatal("expected a timeout error")
	}
	if !strings.Contains(err.Error(), "timeout or canceled") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFetch_UserAgent(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<p>ok</p>")
	}))
	defer server.Close()

	if _, err := NewFetcher().Fetch(context.Background(), Input{URL: server.URL}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if seen != DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", seen)
	}

	if _, err := NewFetcher(WithUserAgent("custom/2.0")).Fetch(context.Background(), Input{URL: server.URL}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if seen != "custom/2.0" {
		t.Errorf("expected custom user agent, got %q", seen)
	}
}

func TestFetch_Redirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<h1>Moved here</h1>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	output, err := NewFetcher().Fetch(context.Background(), Input{URL: server.URL + "/old"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if output.URL != server.URL+"/new" {
		t.Errorf("expected final URL %s/new, got %s", server.URL, output.URL)
	}
}

func TestFetch_TooManyRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	_, err := NewFetcher().Fetch(context.Background(), Input{URL: server.URL + "/a"})
	if err == nil || !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("expected a redirect error, got %v", err)
	}
}

func TestFetch_Truncation(t *testing.T) {
	server := htmlServer(t, "<p>"+strings.Repeat("a", 500)+"</p>")

	output, err := NewFetcher(WithMaxMarkdownChars(100)).Fetch(context.Background(), Input{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !output.Truncated {
		t.Error("expected Truncated to be set")
	}
	if len([]rune(output.Markdown)) != 100 {
		t.Errorf("expected 100 runes, got %d", len([]rune(output.Markdown)))
	}
}

func TestWithHTTPClient(t *testing.T) {
	server := htmlServer(t, samplePage)
	custom := &http.Client{Timeout: 5 * time.Second}

	fetcher := NewFetcher(WithHTTPClient(custom))
	if custom.CheckRedirect != nil {
		t.Error("the caller's client must not be mutated")
	}
	if _, err := fetcher.Fetch(context.Background(), Input{URL: server.URL}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{`<html><head><TITLE> Upper </TITLE></head></html>`, "Upper"},
		{`<title lang="en">Attr</title>`, "Attr"},
		{`<p>no title</p>`, ""},
		{`<title>unterminated`, ""},
	}
	for _, tt := range tests {
		if got := extractTitle(tt.html); got != tt.want {
			t.Errorf("extractTitle(%q) = %q, want %q", tt.html, got, tt.want)
		}
	}
}

func TestNewWebFetchTool(t *testing.T) {
	server := htmlServer(t, samplePage)

	fetchTool, err := NewWebFetchTool(nil)
	if err != nil {
		t.Fatalf("NewWebFetchTool: %v", err)
	}
	info := fetchTool.ToolInfo()
	if info.Name != ToolName || info.Parameters == nil {
		t.Fatalf("unexpected tool info %+v", info)
	}
	if len(info.Parameters.Required) != 1 || info.Parameters.Required[0] != "url" {
		t.Errorf("expected url to be the only required parameter, got %v", info.Parameters.Required)
	}

	out, err := fetchTool.Call(context.Background(), fmt.Sprintf(`{"url":%q}`, server.URL))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(out, "Varanasi") {
		t.Errorf("tool output missing page content: %s", out)
	}
}
