// SPDX-License-Identifier: MPL-2.0

// Package publish pushes release artifacts to the GitHub Releases API.
//
// The Client speaks the small REST surface the packager needs: fetch a
// release by tag, create a draft release, and upload named assets. The
// Publisher layers the best-effort publishing policy on top: a missing
// credential disables publishing entirely, and missing asset files are
// skipped rather than failed.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	// Prevents unbounded memory consumption from malicious or malformed responses.
	maxJSONResponseBytes = 10 << 20

	defaultUserAgent = "distpack/dev"
)

// ErrReleaseNotFound is returned when a requested release tag does not exist.
var ErrReleaseNotFound = errors.New("release not found")

type (
	// APIError is returned for unexpected GitHub API status codes. The
	// status code lets callers special-case authentication failures.
	APIError struct {
		StatusCode int
		Operation  string
	}

	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// Release represents a GitHub release record with upload coordinates.
	Release struct {
		ID        int64   // Release identifier used for asset uploads
		TagName   string  // Version tag, e.g. "v1.2.0"
		Name      string  // Human-readable release name
		Draft     bool    // True while the release is maintainer-only
		UploadURL string  // Asset upload endpoint (template stripped)
		HTMLURL   string  // Browser URL for the release page
		Assets    []Asset // Already-attached artifacts
	}

	// Asset represents a single uploaded file on a release.
	Asset struct {
		ID   int64
		Name string
		Size int64
	}

	// githubRelease is the JSON wire format for a GitHub release API response.
	githubRelease struct {
		ID        int64         `json:"id"`
		TagName   string        `json:"tag_name"`
		Name      string        `json:"name"`
		Draft     bool          `json:"draft"`
		UploadURL string        `json:"upload_url"`
		HTMLURL   string        `json:"html_url"`
		Assets    []githubAsset `json:"assets"`
	}

	// githubAsset is the JSON wire format for a release asset.
	githubAsset struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Size int64  `json:"size"`
	}

	// createReleaseRequest is the JSON body for the create-release call.
	createReleaseRequest struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
		Draft   bool   `json:"draft"`
	}

	// Client performs GitHub Releases API calls for one repository.
	Client struct {
		httpClient *http.Client
		owner      string
		repo       string
		baseURL    string // API base URL (default "https://api.github.com", overridable for tests)
		token      string
		userAgent  string
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the failed operation and status code.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Operation, e.StatusCode)
}

// IsAuthError reports whether err is a GitHub authentication failure.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *Client) {
		g.httpClient = c
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(g *Client) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets the access token used to authenticate API requests.
func WithToken(token string) ClientOption {
	return func(g *Client) {
		g.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(g *Client) {
		g.userAgent = ua
	}
}

// NewClient creates a Client for the given repository.
func NewClient(owner, repo string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		owner:      owner,
		repo:       repo,
		baseURL:    "https://api.github.com",
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetReleaseByTag fetches a single release by its git tag (e.g. "v1.2.0").
// Returns ErrReleaseNotFound if the tag does not correspond to a release.
func (c *Client) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	tagURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s",
		c.baseURL, c.owner, c.repo, url.PathEscape(tag))

	resp, err := c.doRequest(ctx, http.MethodGet, tagURL, "", nil, 0)
	if err != nil {
		return nil, fmt.Errorf("getting release %s: %w", tag, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReleaseNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Operation: "getting release " + tag}
	}

	return decodeRelease(resp.Body)
}

// CreateRelease creates a new release for tag. The release is created as
// a draft when draft is true, leaving it maintainer-only until published.
func (c *Client) CreateRelease(ctx context.Context, tag, name string, draft bool) (*Release, error) {
	body, err := json.Marshal(createReleaseRequest{TagName: tag, Name: name, Draft: draft})
	if err != nil {
		return nil, fmt.Errorf("encoding release request: %w", err)
	}

	createURL := fmt.Sprintf("%s/repos/%s/%s/releases", c.baseURL, c.owner, c.repo)
	resp, err := c.doRequest(ctx, http.MethodPost, createURL, "application/json", bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("creating release %s: %w", tag, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, &APIError{StatusCode: resp.StatusCode, Operation: "creating release " + tag}
	}

	return decodeRelease(resp.Body)
}

// EnsureRelease returns the release for tag, creating a draft release
// when none exists. The found/created distinction is an internal detail;
// callers only receive a release handle to upload against.
func (c *Client) EnsureRelease(ctx context.Context, tag, name string) (*Release, error) {
	rel, err := c.GetReleaseByTag(ctx, tag)
	if err == nil {
		return rel, nil
	}
	if !errors.Is(err, ErrReleaseNotFound) {
		return nil, err
	}
	return c.CreateRelease(ctx, tag, name, true)
}

// UploadAsset uploads the file at path as a named asset of rel.
func (c *Client) UploadAsset(ctx context.Context, rel *Release, name, path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening asset %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat asset %s: %w", name, err)
	}

	uploadURL, err := c.assetUploadURL(rel, name)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, uploadURL, "application/octet-stream", f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("uploading asset %s: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusCreated {
		return nil, &APIError{StatusCode: resp.StatusCode, Operation: "uploading asset " + name}
	}

	var ga githubAsset
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&ga); err != nil {
		return nil, fmt.Errorf("uploading asset %s: decoding response: %w", name, err)
	}

	a := Asset(ga)
	return &a, nil
}

// assetUploadURL resolves the upload endpoint for a release. The API
// reports it as an RFC 6570 template ("…/assets{?name,label}"); when the
// release carries none (e.g. older fixtures), the endpoint is derived
// from the release ID against the API base.
func (c *Client) assetUploadURL(rel *Release, name string) (string, error) {
	base := rel.UploadURL
	if base == "" {
		base = fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets", c.baseURL, c.owner, c.repo, rel.ID)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing upload URL: %w", err)
	}
	u.RawQuery = url.Values{"name": {name}}.Encode()
	return u.String(), nil
}

// doRequest creates and executes an HTTP request with common GitHub API headers.
func (c *Client) doRequest(ctx context.Context, method, reqURL, contentType string, body io.Reader, contentLength int64) (*http.Response, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentLength > 0 {
		req.ContentLength = contentLength
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Only attach the auth token when the request targets a known GitHub
	// host. This prevents token leakage if an upload URL points at a
	// third-party CDN.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	return resp, nil
}

// decodeRelease parses a single release from a JSON response body and
// strips the URI-template suffix from the upload URL.
func decodeRelease(body io.Reader) (*Release, error) {
	var gr githubRelease
	if err := json.NewDecoder(io.LimitReader(body, maxJSONResponseBytes)).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}

	uploadURL := gr.UploadURL
	if i := strings.Index(uploadURL, "{"); i >= 0 {
		uploadURL = uploadURL[:i]
	}

	assets := make([]Asset, 0, len(gr.Assets))
	for _, ga := range gr.Assets {
		assets = append(assets, Asset(ga))
	}

	return &Release{
		ID:        gr.ID,
		TagName:   gr.TagName,
		Name:      gr.Name,
		Draft:     gr.Draft,
		UploadURL: uploadURL,
		HTMLURL:   gr.HTMLURL,
		Assets:    assets,
	}, nil
}

// checkRateLimit inspects the X-RateLimit-* response headers and returns
// a RateLimitError when the remaining quota is zero. Only the header
// values are examined, not the HTTP status code.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		// No rate limit headers present; nothing to check.
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil {
		// Malformed header value; skip rate limit check.
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	if rem > 0 {
		return nil
	}

	// Parse companion headers for a richer error message. Malformed or
	// missing values default to zero, acceptable for a diagnostic.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// isGitHubHost reports whether reqURL targets a known GitHub host, so the
// auth token can be safely attached. It matches the configured API base
// URL host and, when the base is api.github.com, also trusts the
// uploads.github.com asset endpoint.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	if strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "uploads.github.com") {
		return true
	}
	return false
}
