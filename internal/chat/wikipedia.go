package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultSearchBaseURL = "https://en.wikipedia.org"
	articleBaseURL       = "https://en.wikipedia.org/wiki/"
)

var titleSpaces = regexp.MustCompile(`\s+`)

// WikipediaSearcher resolves a keyword to the best-matching article title via
// the MediaWiki REST title search.
type WikipediaSearcher struct {
	baseURL string
	client  *http.Client
}

func NewWikipedia(baseURL string, timeout time.Duration) *WikipediaSearcher {
	if baseURL == "" {
		baseURL = DefaultSearchBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WikipediaSearcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type titleSearchResponse struct {
	Pages []struct {
		Title string `json:"title"`
	} `json:"pages"`
}

func (w *WikipediaSearcher) Search(ctx context.Context, keyword string) (Citation, bool, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("limit", "1")
	endpoint := w.baseURL + "/w/rest.php/v1/search/title?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Citation{}, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Citation{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Citation{}, false, fmt.Errorf("search status %d", resp.StatusCode)
	}

	var body titleSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Citation{}, false, fmt.Errorf("decode search response: %w", err)
	}
	if len(body.Pages) == 0 || strings.TrimSpace(body.Pages[0].Title) == "" {
		return Citation{}, false, nil
	}
	title := body.Pages[0].Title
	return Citation{Title: title, URL: ArticleURL(title)}, true, nil
}

// ArticleURL builds the canonical article link for a title.
func ArticleURL(title string) string {
	return articleBaseURL + url.PathEscape(titleSpaces.ReplaceAllString(title, "_"))
}
