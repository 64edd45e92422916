package assist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ScrapedDoc is documentation fetched from a URL mentioned in a
// quick-edit instruction.
type ScrapedDoc struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

const (
	maxDocURLs  = 3
	maxDocBytes = 64 << 10
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	tagPattern = regexp.MustCompile(`(?s)<script.*?</script>|<style.*?</style>|<[^>]*>`)
)

// FindURLs extracts up to maxDocURLs http(s) URLs from instruction
// text, in order of appearance, deduplicated.
func FindURLs(instruction string) []string {
	matches := urlPattern.FindAllString(instruction, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, u := range matches {
		u = strings.TrimRight(u, ".,;:")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
		if len(urls) == maxDocURLs {
			break
		}
	}
	return urls
}

// ScrapeDocs fetches each URL and returns its text content with markup
// stripped. Failures are logged and skipped; documentation is best
// effort and must never fail a quick edit.
func ScrapeDocs(ctx context.Context, client *http.Client, urls []string) []ScrapedDoc {
	if len(urls) == 0 {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}

	docs := make([]ScrapedDoc, 0, len(urls))
	for _, u := range urls {
		content, err := fetchDoc(ctx, client, u)
		if err != nil {
			logrus.WithError(err).WithField("url", u).Debug("doc scrape failed")
			continue
		}
		if content == "" {
			continue
		}
		docs = append(docs, ScrapedDoc{URL: u, Content: content})
	}
	return docs
}

func fetchDoc(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocBytes))
	if err != nil {
		return "", err
	}
	return StripMarkup(string(body)), nil
}

// StripMarkup removes script/style blocks and tags from HTML, leaving
// whitespace-normalized text. Non-HTML input passes through with the
// same normalization.
func StripMarkup(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
