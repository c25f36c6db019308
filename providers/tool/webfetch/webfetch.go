package webfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leofalp/aiflow/providers/tool"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "aiflow-webfetch/1.0"
	// MaxBodySize caps the downloaded page at 10MB.
	MaxBodySize  = 10 * 1024 * 1024
	maxRedirects = 10
)

// Input is what the model passes to the tool.
type Input struct {
	URL            string `json:"url" jsonschema:"description=The URL of the page to fetch. Partial URLs like 'go.dev' get an https:// prefix"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"description=Request timeout in seconds (default 30)"`
}

// Output is the page converted to Markdown. URL is the address after
// redirects.
type Output struct {
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

// Fetcher downloads pages and converts them to Markdown.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher returns a Fetcher using httpClient, or a client with dial and
// header timeouts when httpClient is nil.
func NewFetcher(httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				IdleConnTimeout:       90 * time.Second,
				ForceAttemptHTTP2:     true,
			},
		}
	}
	client := *httpClient
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects (>%d)", maxRedirects)
		}
		return nil
	}
	return &Fetcher{client: &client, userAgent: DefaultUserAgent}
}

// NewWebFetchTool wraps a default [Fetcher] as a bindable tool.
func NewWebFetchTool() *tool.Tool[Input, Output] {
	return NewFetcher(nil).Tool()
}

// Tool exposes the fetcher as a bindable tool named "WebFetch".
func (fetcher *Fetcher) Tool() *tool.Tool[Input, Output] {
	return tool.MustTool("WebFetch", fetcher.Fetch,
		tool.WithDescription("Fetches a web page and returns its content converted to Markdown. Follows redirects and reports the final URL."),
	)
}

// Fetch retrieves input.URL and converts the HTML body to Markdown. Non-200
// responses and bodies larger than [MaxBodySize] are errors.
func (fetcher *Fetcher) Fetch(ctx context.Context, input Input) (Output, error) {
	url := strings.TrimSpace(input.URL)
	if url == "" {
		return Output{}, errors.New("URL cannot be empty")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	timeout := DefaultTimeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("User-Agent", fetcher.userAgent)

	response, err := fetcher.client.Do(request)
	if err != nil {
		return Output{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() {
		if closeErr := response.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", url)
		}
	}()

	if response.StatusCode != http.StatusOK {
		return Output{}, fmt.Errorf("unexpected status code: %s", response.Status)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, MaxBodySize+1))
	if err != nil {
		return Output{}, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxBodySize {
		return Output{}, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxBodySize)
	}

	markdown, err := htmltomarkdown.ConvertString(string(body))
	if err != nil {
		return Output{}, fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}

	return Output{URL: response.Request.URL.String(), Markdown: markdown}, nil
}
