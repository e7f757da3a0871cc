// Package glossary extracts term/definition pairs from HTML glossary
// pages so they can be imported as flashcards.
package glossary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxBodySize caps how much of a page is read
const maxBodySize = 5 * 1024 * 1024

// Entry is one glossary term
type Entry struct {
	Term       string
	Definition string
}

// Load reads entries from a URL or a local HTML file
func Load(ctx context.Context, source string) ([]Entry, error) {
	if IsURL(source) {
		return Fetch(ctx, source)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open glossary: %w", err)
	}
	defer f.Close()

	return Parse(io.LimitReader(f, maxBodySize))
}

// Fetch retrieves a glossary page and parses its entries
func Fetch(ctx context.Context, rawURL string) ([]Entry, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" {
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "lexigraph/1.0 (glossary import)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return Parse(io.LimitReader(resp.Body, maxBodySize))
}

// IsURL checks if a string looks like a URL
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "www.")
}

// Parse extracts entries from definition lists (<dt>/<dd>) and from
// two-column table rows. Terms are deduplicated case-insensitively; the
// first definition wins.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var entries []Entry
	seen := make(map[string]bool)
	add := func(term, def string) {
		key := strings.ToLower(term)
		if term == "" || def == "" || seen[key] {
			return
		}
		seen[key] = true
		entries = append(entries, Entry{Term: term, Definition: def})
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "nav", "header", "footer", "aside", "noscript", "iframe":
				return
			case "dl":
				parseDefinitionList(n, add)
				return
			case "tr":
				if cells := childElements(n, "td", "th"); len(cells) == 2 && cells[0].Data == "td" {
					add(text(cells[0]), text(cells[1]))
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return entries, nil
}

// parseDefinitionList pairs each <dt> with the <dd> elements after it.
// Several <dd> are joined; a <dt> without a <dd> is skipped.
func parseDefinitionList(dl *html.Node, add func(term, def string)) {
	var (
		term string
		defs []string
	)
	flush := func() {
		if term != "" && len(defs) > 0 {
			add(term, strings.Join(defs, "; "))
		}
		term, defs = "", nil
	}

	var items []*html.Node
	for c := dl.FirstChild; c != nil; c = c.NextSibling {
		// HTML5 allows <div> wrappers around dt/dd groups
		if c.Type == html.ElementNode && c.Data == "div" {
			items = append(items, childElements(c, "dt", "dd")...)
			continue
		}
		if c.Type == html.ElementNode && (c.Data == "dt" || c.Data == "dd") {
			items = append(items, c)
		}
	}

	for _, item := range items {
		switch item.Data {
		case "dt":
			if len(defs) > 0 {
				flush()
			}
			term = text(item)
		case "dd":
			if d := text(item); d != "" {
				defs = append(defs, d)
			}
		}
	}
	flush()
}

func childElements(n *html.Node, tags ...string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		for _, t := range tags {
			if c.Data == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// text returns the whitespace-collapsed text content of n
func text(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
