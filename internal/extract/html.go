package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const nonContentSelector = "script, style, noscript, template, svg, iframe"

func extractHTML(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	return documentText(doc), nil
}

func documentText(doc *goquery.Document) string {
	doc.Find(nonContentSelector).Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var blocks []string
	root.Find("h1, h2, h3, h4, h5, h6, p, li, blockquote, pre, td").Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are visited on their own.
		if s.Find("p, li, blockquote, pre").Length() > 0 {
			return
		}

		if text := normalizeSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})

	if len(blocks) == 0 {
		return normalizeSpace(root.Text())
	}

	title := normalizeSpace(doc.Find("title").First().Text())
	if title != "" && !strings.EqualFold(title, blocks[0]) {
		blocks = append([]string{title}, blocks...)
	}

	return strings.Join(blocks, "\n")
}

func htmlFragmentText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return normalizeSpace(fragment)
	}

	doc.Find(nonContentSelector).Remove()

	return normalizeSpace(doc.Text())
}

func extractFeed(r io.Reader) (string, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}

	var blocks []string
	if title := normalizeSpace(feed.Title); title != "" {
		blocks = append(blocks, title)
	}
	if description := htmlFragmentText(feed.Description); description != "" {
		blocks = append(blocks, description)
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}

		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}

		var b strings.Builder
		if title := normalizeSpace(item.Title); title != "" {
			b.WriteString(title)
		}
		if text := htmlFragmentText(body); text != "" {
			if b.Len() > 0 {
				b.WriteString(": ")
			}
			b.WriteString(text)
		}

		if b.Len() > 0 {
			blocks = append(blocks, b.String())
		}
	}

	return strings.Join(blocks, "\n"), nil
}
