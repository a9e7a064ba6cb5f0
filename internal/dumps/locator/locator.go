// Package locator finds the current dump file for a keyword on a dumps index page.
package locator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/yungbote/wikigraph-backend/internal/domain"
	"github.com/yungbote/wikigraph-backend/internal/platform/logger"
)

var (
	ErrNotFound  = errors.New("locator: dump not found")
	ErrNoVersion = errors.New("locator: dump version undetermined")
)

type Locator interface {
	Locate(ctx context.Context, keyword string) (dumpURL string, version domain.DumpVersion, err error)
}

var (
	dateToken = regexp.MustCompile(`(?:^|-)(\d{8})(?:-|$)`)
	// Apache/nginx autoindex row stamp, e.g. "20-Jan-2025 09:00".
	rowStamp = regexp.MustCompile(`\b(\d{2}-[A-Za-z]{3}-\d{4} \d{2}:\d{2})\b`)
	unsafeCh = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

const (
	rowStampLayout = "02-Jan-2006 15:04"
	versionLayout  = "20060102T1504"
)

// IndexLocator scrapes an HTML directory listing such as
// https://dumps.wikimedia.org/enwiki/latest/.
type IndexLocator struct {
	BaseURL string
	Client  *http.Client
	log     *logger.Logger
}

func NewIndexLocator(log *logger.Logger, baseURL string, timeout time.Duration) *IndexLocator {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IndexLocator{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		log:     log.With("service", "IndexLocator"),
	}
}

func (l *IndexLocator) Locate(ctx context.Context, keyword string) (string, domain.DumpVersion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.BaseURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("locator: build request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("locator: fetch index: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("locator: index returned %d: %w", resp.StatusCode, ErrNotFound)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("locator: parse index: %w", err)
	}
	a := findAnchor(doc, keyword)
	if a == nil {
		return "", "", fmt.Errorf("locator: no %s in index: %w", keyword, ErrNotFound)
	}
	href := attr(a, "href")

	full, err := resolve(l.BaseURL, href)
	if err != nil {
		return "", "", fmt.Errorf("locator: resolve %q: %w", href, err)
	}
	version, err := l.version(ctx, a, href, full)
	if err != nil {
		return "", "", err
	}
	l.log.Info("Found latest dump", "keyword", keyword, "url", full, "version", version)
	return full, version, nil
}

// version picks, in order: the date in the file name, the listing row's
// modification stamp, then the file's Last-Modified or ETag headers.
func (l *IndexLocator) version(ctx context.Context, a *html.Node, href, full string) (domain.DumpVersion, error) {
	if v, ok := VersionFromHref(href); ok {
		return v, nil
	}
	if v, ok := VersionFromRow(rowText(a)); ok {
		return v, nil
	}
	v, err := l.headVersion(ctx, full)
	if err != nil {
		return "", fmt.Errorf("locator: %s: %w", href, err)
	}
	return v, nil
}

func (l *IndexLocator) headVersion(ctx context.Context, full string) (domain.DumpVersion, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, full, nil)
	if err != nil {
		return "", fmt.Errorf("build head request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("head returned %d: %w", resp.StatusCode, ErrNoVersion)
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			return t.UTC().Format(versionLayout), nil
		}
	}
	etag := strings.TrimPrefix(strings.TrimSpace(resp.Header.Get("ETag")), "W/")
	etag = unsafeCh.ReplaceAllString(strings.Trim(etag, `"`), "_")
	if etag == "" {
		return "", ErrNoVersion
	}
	l.log.Warn("Dump listing has no date, using ETag", "url", full, "etag", etag)
	return "etag-" + etag, nil
}

// findAnchor returns the first anchor whose href contains keyword, in document order.
func findAnchor(n *html.Node, keyword string) *html.Node {
	if n.Type == html.ElementNode && n.Data == "a" && strings.Contains(attr(n, "href"), keyword) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if a := findAnchor(c, keyword); a != nil {
			return a
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// rowText collects the text that follows an anchor up to the next anchor or
// line break. In a <pre> listing that is the rest of the row; in a table it
// is the neighbouring cells.
func rowText(a *html.Node) string {
	var b strings.Builder
	n := a
	if n.NextSibling == nil && n.Parent != nil && n.Parent.Data == "td" {
		n = n.Parent
	}
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == "a" {
			break
		}
		text := nodeText(sib)
		if i := strings.IndexByte(text, '\n'); i >= 0 && sib.Type == html.TextNode {
			b.WriteString(text[:i])
			break
		}
		b.WriteString(text)
		b.WriteByte(' ')
	}
	return b.String()
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(h).String(), nil
}

// VersionFromHref extracts the 8-digit date stamp from a dated file name
// (enwiki-20250101-page.sql.gz). Undated names such as
// enwiki-latest-page.sql.gz report ok=false.
func VersionFromHref(href string) (domain.DumpVersion, bool) {
	name := href
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if m := dateToken.FindStringSubmatch(name); m != nil {
		return m[1], true
	}
	return "", false
}

// VersionFromRow parses a listing row's modification stamp into a
// file-name-safe version such as 20250120T0900.
func VersionFromRow(row string) (domain.DumpVersion, bool) {
	m := rowStamp.FindStringSubmatch(row)
	if m == nil {
		return "", false
	}
	t, err := time.Parse(rowStampLayout, m[1])
	if err != nil {
		return "", false
	}
	return t.Format(versionLayout), true
}
