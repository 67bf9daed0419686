package canvas

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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

const defaultPageSize = 100

// ErrRequest wraps transport-level failures (DNS, refused connections,
// timeouts, truncated bodies).
var ErrRequest = errors.New("canvas: request failed")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("canvas: %s %s: %s", e.Method, e.URL, e.Status)
}

// Logger receives one line per HTTP exchange.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Client talks to a single Canvas instance with a bearer token.
type Client struct {
	baseURL  *url.URL
	token    string
	http     *http.Client
	logger   Logger
	pageSize int
	validate *validator.Validate
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger traces each request through l.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPageSize sets the per_page query parameter for listings.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// NewClient builds a client for baseURL (for example https://canvas.example.edu).
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("canvas: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("canvas: base url %q must include scheme and host", baseURL)
	}
	c := &Client{
		baseURL:  parsed,
		token:    token,
		http:     &http.Client{Timeout: 30 * time.Second},
		logger:   nopLogger{},
		pageSize: defaultPageSize,
		validate: validator.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Courses lists the courses of the token's owner.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	err := c.list(ctx, "/api/v1/courses", func(dec *json.Decoder) error {
		var page []Course
		if err := dec.Decode(&page); err != nil {
			return err
		}
		courses = append(courses, page...)
		return nil
	})
	return courses, err
}

// Assignments lists the assignments of a course.
func (c *Client) Assignments(ctx context.Context, courseID int) ([]Assignment, error) {
	var assignments []Assignment
	path := fmt.Sprintf("/api/v1/courses/%d/assignments", courseID)
	err := c.list(ctx, path, func(dec *json.Decoder) error {
		var page []Assignment
		if err := dec.Decode(&page); err != nil {
			return err
		}
		assignments = append(assignments, page...)
		return nil
	})
	return assignments, err
}

// Submissions lists every submission for an assignment.
func (c *Client) Submissions(ctx context.Context, courseID, assignmentID int) ([]Submission, error) {
	var submissions []Submission
	path := fmt.Sprintf("/api/v1/courses/%d/assignments/%d/submissions", courseID, assignmentID)
	err := c.list(ctx, path, func(dec *json.Decoder) error {
		var page []Submission
		if err := dec.Decode(&page); err != nil {
			return err
		}
		submissions = append(submissions, page...)
		return nil
	})
	return submissions, err
}

// UserProfile fetches the profile of one user.
func (c *Client) UserProfile(ctx context.Context, userID int) (UserProfile, error) {
	var profile UserProfile
	endpoint := c.resolve(fmt.Sprintf("/api/v1/users/%d/profile", userID), nil)
	resp, err := c.do(ctx, endpoint, true)
	if err != nil {
		return UserProfile{}, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return UserProfile{}, fmt.Errorf("%w: decode profile %d: %v", ErrRequest, userID, err)
	}
	if err := c.validate.Struct(profile); err != nil {
		return UserProfile{}, fmt.Errorf("canvas: profile %d: %w", userID, err)
	}
	return profile, nil
}

// Download fetches raw bytes from an attachment URL. The bearer token is only
// sent when the URL points at the configured Canvas host.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrRequest, rawURL, err)
	}
	resp, err := c.do(ctx, target, target.Host == c.baseURL.Host)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrRequest, redact(target), err)
	}
	c.logger.Printf("GET %s read %s", redact(target), humanize.Bytes(uint64(len(data))))
	return data, nil
}

func (c *Client) list(ctx context.Context, path string, decode func(*json.Decoder) error) error {
	next := c.resolve(path, url.Values{"per_page": {strconv.Itoa(c.pageSize)}})
	for next != nil {
		resp, err := c.do(ctx, next, next.Host == c.baseURL.Host)
		if err != nil {
			return err
		}
		err = decode(json.NewDecoder(resp.Body))
		link := resp.Header.Get("Link")
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrRequest, path, err)
		}
		next, err = nextPage(link)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrRequest, err)
		}
	}
	return nil
}

func (c *Client) resolve(path string, query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u
}

func (c *Client) do(ctx context.Context, target *url.URL, authorize bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if authorize && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("GET %s failed: %v", redact(target), err)
		return nil, fmt.Errorf("%w: GET %s: %v", ErrRequest, redact(target), err)
	}
	c.logger.Printf("GET %s -> %d (%s)", redact(target), resp.StatusCode, time.Since(start).Round(time.Millisecond))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, &StatusError{
			Method:     http.MethodGet,
			URL:        redact(target),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}
	return resp, nil
}

// nextPage extracts the rel="next" target from a Link header.
func nextPage(header string) (*url.URL, error) {
	if strings.TrimSpace(header) == "" {
		return nil, nil
	}
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			if strings.Trim(strings.TrimSpace(value), `"`) == "next" {
				u, err := url.Parse(target[1 : len(target)-1])
				if err != nil {
					return nil, fmt.Errorf("parse next link: %w", err)
				}
				return u, nil
			}
		}
	}
	return nil, nil
}

// redact drops query strings, which carry download verifiers.
func redact(u *url.URL) string {
	clean := *u
	clean.RawQuery = ""
	return clean.String()
}

func nameOr(name *string, kind string, id int) string {
	if name != nil {
		if trimmed := strings.TrimSpace(*name); trimmed != "" {
			return trimmed
		}
	}
	return fmt.Sprintf("%s %d", kind, id)
}
