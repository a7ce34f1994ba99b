package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"mvdan.cc/xurls/v2"
)

const (
	httpClientTimeout = 30 * time.Second
	userAgent         = "Mozilla/5.0 (compatible; docsummary/1.0)"
	maxURLsPerMessage = 5
)

// FindURLs returns the distinct http(s) URLs found in text, in order of
// appearance and at most maxURLsPerMessage of them.
func FindURLs(text string) ([]string, error) {
	re, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return nil, fmt.Errorf("create regexp: %w", err)
	}

	var urls []string
	seen := make(map[string]struct{})

	for _, u := range re.FindAllString(text, -1) {
		u = strings.TrimSpace(u)
		if _, ok := seen[u]; ok {
			continue
		}

		seen[u] = struct{}{}
		urls = append(urls, u)

		if len(urls) == maxURLsPerMessage {
			break
		}
	}

	return urls, nil
}

// ExtractURL downloads rawURL and extracts its text according to the
// response content type. HTML pages are narrowed to their main article.
func (e *Extractor) ExtractURL(ctx context.Context, rawURL string) (string, error) {
	return e.extractURL(ctx, &http.Client{Timeout: httpClientTimeout}, rawURL)
}

func (e *Extractor) extractURL(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("%w: URL scheme %q", ErrUnsupportedFormat, parsed.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			e.log.WarnContext(ctx, "Failed to close response body",
				"error", closeErr,
				"url", parsed.String())
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, e.maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if int64(len(body)) > e.maxFileSize {
		return "", fmt.Errorf("%w: %s", ErrFileTooLarge, parsed.String())
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		mediaType = http.DetectContentType(body)
		mediaType, _, _ = strings.Cut(mediaType, ";")
	}

	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return extractWebPage(body, parsed)
	case mediaType == "application/pdf":
		return extractPDF(body)
	case strings.Contains(mediaType, "rss") || strings.Contains(mediaType, "atom") ||
		mediaType == "application/xml" || mediaType == "text/xml":
		return extractFeed(bytes.NewReader(body))
	case strings.HasPrefix(mediaType, "text/"):
		return extractText(bytes.NewReader(body))
	default:
		return "", fmt.Errorf("%w: content type %q", ErrUnsupportedFormat, mediaType)
	}
}

// extractWebPage keeps the readable article of an HTML page, falling back to
// the whole page when readability finds nothing.
func extractWebPage(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		text, htmlErr := extractHTML(strings.NewReader(article.Content))
		if htmlErr == nil && text != "" {
			return text, nil
		}
	}

	return extractHTML(bytes.NewReader(body))
}
