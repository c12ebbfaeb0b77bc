// Package backend talks to the task-list server: create, update and delete as
// multipart form posts, sort as a JSON post. Every endpoint answers with a JSON
// object carrying a success flag.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"

	"todo-cli/internal/model"
)

// Endpoint paths.
const (
	PathAddTask    = "/add_task"
	PathUpdateTask = "/update_task/"
	PathDeleteTask = "/delete_task/"
	PathSortTasks  = "/sort_tasks"
)

// maxResponse bounds the size of a decoded response body.
const maxResponse = 8 << 20

type Client struct {
	base   *url.URL
	http   *http.Client
	logger *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("backend url is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	c := &Client{
		base:   u,
		http:   &http.Client{},
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the server address the client posts to.
func (c *Client) BaseURL() string { return c.base.String() }

// AddTask posts a new task.
func (c *Client) AddTask(ctx context.Context, f model.Fields) (model.Result, error) {
	body, ctype, err := encodeFields(f, false)
	if err != nil {
		return model.Result{}, err
	}
	return c.post(ctx, "add_task", c.endpoint(PathAddTask, ""), ctype, body)
}

// UpdateTask posts new field values for an existing task. The form carries the
// task id in addition to the path.
func (c *Client) UpdateTask(ctx context.Context, id model.TaskID, f model.Fields) (model.Result, error) {
	f.TaskID = id.String()
	body, ctype, err := encodeFields(f, true)
	if err != nil {
		return model.Result{}, err
	}
	return c.post(ctx, "update_task", c.endpoint(PathUpdateTask, id.String()), ctype, body)
}

// DeleteTask deletes a task. The request has no body.
func (c *Client) DeleteTask(ctx context.Context, id model.TaskID) (model.Result, error) {
	return c.post(ctx, "delete_task", c.endpoint(PathDeleteTask, id.String()), "", nil)
}

type sortRequest struct {
	SortType model.SortType `json:"sort_type"`
}

// SortTasks asks the server for every task ordered by due date.
func (c *Client) SortTasks(ctx context.Context, sortType model.SortType) (model.Result, error) {
	b, err := sonic.Marshal(sortRequest{SortType: sortType})
	if err != nil {
		return model.Result{}, fmt.Errorf("encode sort request: %w", err)
	}
	return c.post(ctx, "sort_tasks", c.endpoint(PathSortTasks, ""), "application/json", b)
}

func encodeFields(f model.Fields, withID bool) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	pairs := [][2]string{
		{"title", f.Title},
		{"content", f.Content},
		{"due_date", f.DueDate},
		{"memo", f.Memo},
	}
	if withID {
		pairs = append([][2]string{{"task_id", f.TaskID}}, pairs...)
	}
	for _, p := range pairs {
		if err := mw.WriteField(p[0], p[1]); err != nil {
			return nil, "", fmt.Errorf("encode form field %s: %w", p[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("encode form: %w", err)
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

// endpoint returns the URL of path with id as its last segment. The id is
// opaque and escaped exactly once, so "/" or spaces stay inside the segment.
func (c *Client) endpoint(path, id string) *url.URL {
	u := *c.base
	u.Path = c.base.Path + path + id
	u.RawPath = c.base.EscapedPath() + path + url.PathEscape(id)
	return &u
}

func (c *Client) post(ctx context.Context, action string, u *url.URL, contentType string, body []byte) (model.Result, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), rdr)
	if err != nil {
		return model.Result{}, fmt.Errorf("%s: build request: %w", action, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return model.Result{}, &TransportError{Action: action, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debug("backend", "action", action, "status", resp.StatusCode, "dur", time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return model.Result{}, &TransportError{Action: action, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.Result{}, &StatusError{Action: action, Code: resp.StatusCode, Body: snippet(raw)}
	}

	var res model.Result
	if err := sonic.Unmarshal(raw, &res); err != nil {
		return model.Result{}, &DecodeError{Action: action, Body: snippet(raw), Err: err}
	}
	return res, nil
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(strings.ToValidUTF8(string(b), "\uFFFD"))
	if utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max]) + "..."
	}
	return s
}
