// Package prismic is a read-only client for the Prismic REST API (v2) that
// implements content.Repository.
package prismic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eringen/spacetraveling/content"
)

const (
	defaultUserAgent = "spacetraveling/1.0 (+https://github.com/eringen/spacetraveling)"
	defaultTimeout   = 15 * time.Second
	defaultRefTTL    = 30 * time.Second
)

// ErrForeignCursor is returned when a continuation cursor does not point at the
// configured API host.
var ErrForeignCursor = errors.New("prismic: cursor does not belong to this repository")

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prismic: %s returned HTTP %d", e.URL, e.Code)
}

// Client talks to one Prismic repository.
type Client struct {
	endpoint    *url.URL
	accessToken string
	userAgent   string
	refTTL      time.Duration
	http        *http.Client

	mu        sync.Mutex
	masterRef string
	refAt     time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token used for private repositories.
func WithAccessToken(token string) Option {
	return func(c *Client) { c.accessToken = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRefTTL sets how long the master ref is reused before the API root is read again.
func WithRefTTL(d time.Duration) Option {
	return func(c *Client) { c.refTTL = d }
}

// New creates a client for the API root endpoint, e.g.
// https://spacetraveling.cdn.prismic.io/api/v2.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("prismic: parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("prismic: endpoint %q must be an absolute URL", endpoint)
	}
	c := &Client{
		endpoint:  u,
		userAgent: defaultUserAgent,
		refTTL:    defaultRefTTL,
		http:      &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type apiRoot struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// MasterRef returns the ref of the currently published content.
func (c *Client) MasterRef(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.masterRef != "" && time.Since(c.refAt) < c.refTTL {
		ref := c.masterRef
		c.mu.Unlock()
		return ref, nil
	}
	c.mu.Unlock()

	u := *c.endpoint
	if c.accessToken != "" {
		u.RawQuery = url.Values{"access_token": {c.accessToken}}.Encode()
	}
	var root apiRoot
	if err := c.get(ctx, u.String(), &root); err != nil {
		return "", fmt.Errorf("read api root: %w", err)
	}
	for _, r := range root.Refs {
		if r.IsMasterRef {
			c.mu.Lock()
			c.masterRef = r.Ref
			c.refAt = time.Now()
			c.mu.Unlock()
			return r.Ref, nil
		}
	}
	return "", errors.New("prismic: api root has no master ref")
}

// SearchURL builds the documents/search URL for q.
func (c *Client) SearchURL(q content.Query, ref string) string {
	v := url.Values{}
	v.Set("ref", ref)
	if len(q.Predicates) > 0 {
		var b strings.Builder
		b.WriteByte('[')
		for _, p := range q.Predicates {
			b.WriteString(string(p))
		}
		b.WriteByte(']')
		v.Set("q", b.String())
	}
	if len(q.Fetch) > 0 {
		v.Set("fetch", strings.Join(q.Fetch, ","))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.After != "" {
		v.Set("after", q.After)
	}
	if len(q.Orderings) > 0 {
		parts := make([]string, len(q.Orderings))
		for i, o := range q.Orderings {
			parts[i] = strings.Trim(o.String(), "[]")
		}
		v.Set("orderings", "["+strings.Join(parts, ",")+"]")
	}
	if c.accessToken != "" {
		v.Set("access_token", c.accessToken)
	}
	u := *c.endpoint
	u.Path = strings.TrimSuffix(u.Path, "/") + "/documents/search"
	u.RawQuery = v.Encode()
	return u.String()
}

// Query runs q against the ref in q.Ref, or the master ref when empty.
func (c *Client) Query(ctx context.Context, q content.Query) (content.Response, error) {
	ref := q.Ref
	if ref == "" {
		var err error
		if ref, err = c.MasterRef(ctx); err != nil {
			return content.Response{}, err
		}
	}
	var resp content.Response
	if err := c.get(ctx, c.SearchURL(q, ref), &resp); err != nil {
		return content.Response{}, fmt.Errorf("query documents: %w", err)
	}
	return publicCursors(resp), nil
}

// FetchPage follows a next_page URL returned by a previous query. Cursors
// never carry the access token; it is added here before the request.
func (c *Client) FetchPage(ctx context.Context, cursor string) (content.Response, error) {
	if err := c.CheckCursor(cursor); err != nil {
		return content.Response{}, err
	}
	var resp content.Response
	if err := c.get(ctx, c.withToken(cursor), &resp); err != nil {
		return content.Response{}, fmt.Errorf("fetch page: %w", err)
	}
	return publicCursors(resp), nil
}

// publicCursors drops the access token the API echoes into page links.
// Cursors are handed to browsers.
func publicCursors(resp content.Response) content.Response {
	resp.NextPage = stripToken(resp.NextPage)
	resp.PrevPage = stripToken(resp.PrevPage)
	return resp
}

func stripToken(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if !q.Has("access_token") {
		return rawURL
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) withToken(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Del("access_token")
	if c.accessToken != "" {
		q.Set("access_token", c.accessToken)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// CheckCursor verifies that cursor targets this repository's API host.
func (c *Client) CheckCursor(cursor string) error {
	u, err := url.Parse(cursor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForeignCursor, err)
	}
	if u.Scheme != c.endpoint.Scheme || !strings.EqualFold(u.Host, c.endpoint.Host) {
		return ErrForeignCursor
	}
	if !strings.HasPrefix(u.Path, c.endpoint.Path) {
		return ErrForeignCursor
	}
	return nil
}

// GetByUID fetches a single document of docType by its uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid, ref string) (content.Post, error) {
	q := content.Query{
		Predicates: []content.Predicate{content.At("my."+docType+".uid", uid)},
		PageSize:   1,
		Ref:        ref,
	}
	resp, err := c.Query(ctx, q)
	if err != nil {
		return content.Post{}, err
	}
	if len(resp.Results) == 0 {
		return content.Post{}, content.ErrNotFound
	}
	return resp.Results[0], nil
}

// GetByID fetches a document by its CMS id. Used to resolve preview targets.
func (c *Client) GetByID(ctx context.Context, id, ref string) (content.Post, error) {
	q := content.Query{
		Predicates: []content.Predicate{content.At("document.id", id)},
		PageSize:   1,
		Ref:        ref,
	}
	resp, err := c.Query(ctx, q)
	if err != nil {
		return content.Post{}, err
	}
	if len(resp.Results) == 0 {
		return content.Post{}, content.ErrNotFound
	}
	return resp.Results[0], nil
}

func (c *Client) get(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redact(uerr.URL)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Code: resp.StatusCode, URL: redact(rawURL)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// redact strips the access token from URLs that end up in errors and logs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
