// Package api is the HTTP transport to the site API. It owns request ids, credentials,
// envelope decoding and the mapping of failures onto the error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/existflow/blogdesk/internal/logger"
	"github.com/google/uuid"
)

const maxBodySize = 10 << 20

// TokenSource yields the token to attach to credentialed requests, "" for none
type TokenSource func() string

// Envelope is the {success, message} wrapper every API response carries
type Envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e Envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// File is one file part of a multipart body
type File struct {
	Field    string
	Filename string
	Data     []byte
}

// Form is a multipart body. Fields keep their insertion order.
type Form struct {
	Fields [][2]string
	Files  []File
}

// Add appends a text field
func (f *Form) Add(name, value string) {
	f.Fields = append(f.Fields, [2]string{name, value})
}

// AddFile appends a file part
func (f *Form) AddFile(field, filename string, data []byte) {
	f.Files = append(f.Files, File{Field: field, Filename: filename, Data: data})
}

// Request describes one API call
type Request struct {
	Method       string
	Path         string
	JSON         any   // JSON body, mutually exclusive with Form
	Form         *Form // multipart body
	Credentialed bool  // attach the session token

	// Resource and ID name the target for NotFoundError
	Resource string
	ID       string
}

// resettableJar is the client's cookie jar. Reset swaps the underlying store
// while requests may be reading it.
type resettableJar struct {
	mu  sync.RWMutex
	jar *cookiejar.Jar
}

func newResettableJar() (*resettableJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &resettableJar{jar: jar}, nil
}

func (j *resettableJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *resettableJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

// Reset forgets every cookie
func (j *resettableJar) Reset() {
	fresh, _ := cookiejar.New(nil)
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar = fresh
}

// Client is the site API client. It is safe for concurrent use.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	jar           *resettableJar
	tokens        TokenSource
	sessionCookie string
	log           *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTokenSource sets where credentialed requests get their token
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithSessionCookie sets the cookie name the token is also sent under
func WithSessionCookie(name string) Option {
	return func(c *Client) { c.sessionCookie = name }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the API rooted at baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api.New: invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api.New: base url %q must be http or https", baseURL)
	}

	jar, err := newResettableJar()
	if err != nil {
		return nil, fmt.Errorf("api.New: %w", err)
	}

	c := &Client{
		baseURL: u,
		jar:     jar,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		sessionCookie: "admin-token",
		log:           logger.Named("api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SessionCookie returns the value of the session cookie the server set, if any
func (c *Client) SessionCookie() string {
	if c.sessionCookie == "" {
		return ""
	}
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == c.sessionCookie {
			return ck.Value
		}
	}
	return ""
}

// Do performs req and decodes the response into out (when non-nil).
// Failures come back as NetworkError, AuthError, NotFoundError or ServerError.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	op := req.Method + " " + req.Path

	body, contentType, err := encodeBody(req)
	if err != nil {
		return fmt.Errorf("encode %s: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL.String()+req.Path, body)
	if err != nil {
		return fmt.Errorf("create request %s: %w", op, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Credentialed {
		c.attachCredentials(httpReq)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Warn("Request failed", logger.F("op", op), logger.F("request_id", requestID), logger.Err(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug("Request done",
		logger.F("op", op),
		logger.F("request_id", requestID),
		logger.F("status", resp.StatusCode),
		logger.F("duration", time.Since(start).String()))

	var env Envelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, env.text(), req.Resource, req.ID)
	}
	if env.Success != nil && !*env.Success {
		return &ServerError{StatusCode: resp.StatusCode, Message: env.text()}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &ServerError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("malformed response: %v", err)}
		}
	}
	return nil
}

func (c *Client) attachCredentials(r *http.Request) {
	if c.tokens == nil {
		return
	}
	token := c.tokens()
	if token == "" {
		return
	}
	r.Header.Set("Authorization", "Bearer "+token)
	if c.sessionCookie != "" && c.SessionCookie() == "" {
		r.AddCookie(&http.Cookie{Name: c.sessionCookie, Value: token})
	}
}

// ClearCookies forgets every cookie the server set. Requests in flight keep working.
func (c *Client) ClearCookies() {
	c.jar.Reset()
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.Form != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for _, f := range req.Form.Fields {
			if err := w.WriteField(f[0], f[1]); err != nil {
				return nil, "", err
			}
		}
		for _, f := range req.Form.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(f.Data); err != nil {
				return nil, "", err
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	default:
		return nil, "", nil
	}
}
