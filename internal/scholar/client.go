// Package scholar is a client for the Semantic Scholar Graph API, used to
// fetch reference lists and paper metadata for library documents.
package scholar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/matsen/citegraph/internal/cite"
	"github.com/matsen/citegraph/internal/document"
)

const (
	// BaseURL is the Semantic Scholar Graph API base URL.
	BaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit is 1 request per second, the unauthenticated API limit.
	RateLimit = 1.0

	// AuthenticatedRateLimit applies when an API key is configured.
	AuthenticatedRateLimit = 10.0

	// DefaultReferenceLimit caps the references fetched per paper.
	DefaultReferenceLimit = 500

	// referenceFields are the fields requested for reference lookups.
	referenceFields = "title,externalIds,paperId"
)

// Sentinel errors for API failure modes. checkHTTPErrors maps response
// status codes onto these so callers can branch with errors.Is.
var (
	ErrNotFound        = errors.New("not found in Semantic Scholar")
	ErrAuthError       = errors.New("Semantic Scholar authentication error")
	ErrRateLimited     = errors.New("Semantic Scholar rate limit exceeded")
	ErrNetworkError    = errors.New("network error communicating with Semantic Scholar")
	ErrInvalidResponse = errors.New("invalid response from Semantic Scholar")
)

// IsNotFound reports whether err means the paper does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAuthError reports whether err means the API key was missing or rejected.
func IsAuthError(err error) bool { return errors.Is(err, ErrAuthError) }

// IsRateLimited reports whether err means the rate limit was exceeded.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// Client is a rate-limited HTTP client for the Semantic Scholar Graph API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a new Semantic Scholar client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    BaseURL,
	}

	// Check for API key in environment
	if key := os.Getenv("S2_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Limit(RateLimit)
	if c.apiKey != "" {
		limit = rate.Limit(AuthenticatedRateLimit)
	}
	c.limiter = rate.NewLimiter(limit, 1)

	return c
}

// s2Paper is a paper as returned by the Graph API. externalIds values are
// mixed-type JSON: most identifiers are strings but CorpusId is a number.
type s2Paper struct {
	PaperID     string         `json:"paperId"`
	Title       string         `json:"title"`
	ExternalIDs map[string]any `json:"externalIds"`
}

// externalID returns the named identifier as a string, stringifying the
// numeric CorpusId the API sends.
func (p s2Paper) externalID(name string) string {
	switch v := p.ExternalIDs[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// candidateRef converts an API paper into a provider reference, mapping the
// API's identifier names onto the library's id types. The s2 id is the
// numeric corpus id, not the hex paperId.
func (p s2Paper) candidateRef() cite.CandidateRef {
	ids := make(map[string]string)
	if v := p.externalID("DOI"); v != "" {
		ids[document.IDTypeDOI] = v
	}
	if v := p.externalID("ArXiv"); v != "" {
		ids[document.IDTypeArXiv] = v
	}
	if v := p.externalID("ACL"); v != "" {
		ids[document.IDTypeACL] = v
	}
	if v := p.externalID("CorpusId"); v != "" {
		ids[document.IDTypeS2] = v
	}
	return cite.CandidateRef{
		ProviderID:  p.PaperID,
		ExternalIDs: ids,
		Title:       p.Title,
	}
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode == 404 {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}
	return nil
}

// get performs a rate-limited GET and decodes the JSON response into dst.
func (c *Client) get(ctx context.Context, path string, query url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// queryPaperID builds the API paper identifier for a document's external ids,
// preferring DOI, then arXiv, ACL, and the Semantic Scholar corpus id.
func queryPaperID(ids map[string]string) string {
	if v := ids[document.IDTypeDOI]; v != "" {
		return "DOI:" + v
	}
	if v := ids[document.IDTypeArXiv]; v != "" {
		return "ARXIV:" + v
	}
	if v := ids[document.IDTypeACL]; v != "" {
		return "ACL:" + v
	}
	if v := ids[document.IDTypeS2]; v != "" {
		return "CorpusId:" + v
	}
	return ""
}

// References fetches the reference list for a document identified by its
// external ids, falling back to a title match when no id is usable.
func (c *Client) References(ctx context.Context, ids map[string]string, title string) ([]cite.CandidateRef, error) {
	paperID := queryPaperID(ids)
	if paperID == "" {
		if title == "" {
			return nil, nil
		}
		matched, err := c.MatchByTitle(ctx, title)
		if err != nil {
			return nil, err
		}
		paperID = matched.ProviderID
	}

	query := url.Values{}
	query.Set("fields", referenceFields)
	query.Set("limit", fmt.Sprintf("%d", DefaultReferenceLimit))

	var resp struct {
		Data []struct {
			CitedPaper s2Paper `json:"citedPaper"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID)+"/references", query, &resp); err != nil {
		return nil, err
	}

	refs := make([]cite.CandidateRef, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.CitedPaper.PaperID == "" && d.CitedPaper.Title == "" {
			continue
		}
		refs = append(refs, d.CitedPaper.candidateRef())
	}
	return refs, nil
}

// MatchByTitle finds the closest paper for a title.
func (c *Client) MatchByTitle(ctx context.Context, title string) (cite.CandidateRef, error) {
	query := url.Values{}
	query.Set("query", title)
	query.Set("fields", referenceFields)

	var resp struct {
		Data []s2Paper `json:"data"`
	}
	if err := c.get(ctx, "/paper/search/match", query, &resp); err != nil {
		return cite.CandidateRef{}, err
	}
	if len(resp.Data) == 0 {
		return cite.CandidateRef{}, ErrNotFound
	}
	return resp.Data[0].candidateRef(), nil
}

// GetPaper fetches a single paper's metadata and identifiers.
func (c *Client) GetPaper(ctx context.Context, paperID string) (cite.CandidateRef, error) {
	query := url.Values{}
	query.Set("fields", referenceFields)

	var paper s2Paper
	if err := c.get(ctx, "/paper/"+url.PathEscape(paperID), query, &paper); err != nil {
		return cite.CandidateRef{}, err
	}
	if paper.PaperID == "" {
		return cite.CandidateRef{}, ErrNotFound
	}
	return paper.candidateRef(), nil
}
