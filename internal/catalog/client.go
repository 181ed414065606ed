// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/valleymod/valleymod/pkg/manifest"
	"github.com/valleymod/valleymod/pkg/platform"
)

const (
	// DefaultBaseURL is the catalog API root.
	DefaultBaseURL = "https://smapi.io/api"

	// DefaultSearchURL is the catalog's mod list, used as download hint when a mod
	// has no download page of its own.
	DefaultSearchURL = "https://smapi.io/mods"

	// APIVersion is the protocol version tag sent with every query.
	APIVersion = "3.0"

	// maxJSONResponseBytes bounds the size of a decoded response (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var (
	// ErrServiceUnavailable is wrapped by every ServiceError.
	ErrServiceUnavailable = errors.New("mod catalog unavailable")

	// ErrGameVersionUnavailable is returned when a query is attempted without a
	// game version; no request is sent.
	ErrGameVersionUnavailable = errors.New("game version unavailable")
)

type (
	// ServiceError describes a failed catalog call: transport failure, unexpected
	// status, or an undecodable response.
	ServiceError struct {
		// Op names the failed step (e.g. "executing request").
		Op string
		// StatusCode is the HTTP status, or 0 when no response was received.
		StatusCode int
		// Cause is the underlying error, if any.
		Cause error
	}

	// Client queries the remote mod catalog.
	Client struct {
		httpClient *http.Client
		baseURL    string
		userAgent  string
		goos       string
		limiter    *rate.Limiter
		logger     *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error implements the error interface.
func (e *ServiceError) Error() string {
	msg := "mod catalog: " + e.Op
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": unexpected status %d", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes ErrServiceUnavailable and the cause to errors.Is/As.
func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrServiceUnavailable}
	}
	return []error{ErrServiceUnavailable, e.Cause}
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithBaseURL overrides the catalog API root, primarily for test servers.
func WithBaseURL(base string) ClientOption {
	return func(cl *Client) {
		if base != "" {
			cl.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithLimiter makes every query wait for a token from l before sending.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(cl *Client) {
		cl.limiter = l
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *log.Logger) ClientOption {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// WithGOOS overrides the operating system reported to the catalog.
func WithGOOS(goos string) ClientOption {
	return func(cl *Client) {
		cl.goos = goos
	}
}

// NewClient creates a Client with sensible defaults.
// Defaults: baseURL=DefaultBaseURL, userAgent="valleymod/dev",
// httpClient=http.DefaultClient, goos=runtime.GOOS, no rate limit.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    DefaultBaseURL,
		userAgent:  "valleymod/dev",
		goos:       runtime.GOOS,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL batched queries are posted to.
func (c *Client) Endpoint() string {
	return c.baseURL + "/v" + APIVersion + "/mods"
}

// Query looks up identities in one batched request.
//
// An empty batch returns no results without contacting the catalog. An empty
// gameVersion fails closed with ErrGameVersionUnavailable. The response order is not
// tied to the request order; use FindResult to correlate. Every other failure is a
// *ServiceError. There is exactly one attempt per call.
func (c *Client) Query(ctx context.Context, identities []Identity, gameVersion string, includeExtendedMetadata bool) ([]Result, error) {
	if len(identities) == 0 {
		return nil, nil
	}
	version := TruncateGameVersion(gameVersion)
	if version == "" {
		return nil, ErrGameVersionUnavailable
	}

	body, err := json.Marshal(queryRequest{
		Mods:                    identities,
		APIVersion:              APIVersion,
		GameVersion:             version,
		Platform:                platform.CatalogTag(c.goos),
		IncludeExtendedMetadata: includeExtendedMetadata,
	})
	if err != nil {
		return nil, &ServiceError{Op: "encoding request", Cause: err}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &ServiceError{Op: "waiting for rate limiter", Cause: err}
		}
	}

	c.logger.Debug("querying mod catalog", "mods", len(identities), "gameVersion", version, "extended", includeExtendedMetadata)

	resp, err := c.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Op: "querying mods", StatusCode: resp.StatusCode}
	}

	var results []Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&results); err != nil {
		return nil, &ServiceError{Op: "decoding response", Cause: err}
	}

	c.logger.Debug("mod catalog answered", "results", len(results))
	return results, nil
}

// doRequest creates and executes the POST request with the catalog headers.
func (c *Client) doRequest(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, &ServiceError{Op: "creating request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: "executing request", Cause: err}
	}
	return resp, nil
}

// FindResult returns the result for id, matching identifiers case-insensitively.
func FindResult(results []Result, id string) (Result, bool) {
	for _, r := range results {
		if manifest.SameID(r.ID, id) {
			return r, true
		}
	}
	return Result{}, false
}

// TruncateGameVersion reduces a game version to its first three numeric
// components ("1.5.6.1" becomes "1.5.6", "1.6" becomes "1.6.0"). Anything after
// the first character that is neither a digit nor a dot is ignored. It returns ""
// when no numeric component is present.
func TruncateGameVersion(v string) string {
	v = strings.TrimSpace(v)
	end := strings.IndexFunc(v, func(r rune) bool { return r != '.' && (r < '0' || r > '9') })
	if end >= 0 {
		v = v[:end]
	}

	var parts []string
	for p := range strings.SplitSeq(v, ".") {
		if p == "" {
			break
		}
		parts = append(parts, p)
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}
