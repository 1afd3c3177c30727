// Package client is a Go client for the fuzzy search HTTP API, including the
// pull-mode observe-until-terminal helper and a push channel session.
package client

import (
	"bytes"
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

	"github.com/juju/clock"
	"golang.org/x/oauth2"

	"github.com/target/fuzzysearch/internal/domain/model"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	// Token is a static bearer credential. Ignored when TokenSource is set.
	Token string
	// TokenSource supplies (and refreshes) bearer tokens, e.g. from an OIDC login.
	TokenSource oauth2.TokenSource
	Timeout     time.Duration
	HTTPClient  *http.Client
	Clock       clock.Clock
}

// Client talks to a fuzzy search server.
type Client struct {
	base   *url.URL
	token  string
	ts     oauth2.TokenSource
	client *http.Client
	clock  clock.Clock
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("server returned %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps well-known replies onto domain sentinels so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return model.ErrAuthenticationFailed
	case e.Code == "job_not_found":
		return model.ErrJobNotFound
	case e.Code == "corpus_not_found":
		return model.ErrCorpusNotFound
	case e.Code == "unknown_algorithm":
		return model.ErrUnknownAlgorithm
	default:
		return nil
	}
}

// New builds a Client. Callers should pass a validated config.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must use http or https, got %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.WallClock
	}

	return &Client{
		base:   base,
		token:  strings.TrimSpace(cfg.Token),
		ts:     cfg.TokenSource,
		client: hc,
		clock:  clk,
	}, nil
}

// Submit starts an asynchronous search and returns its task id.
func (c *Client) Submit(ctx context.Context, params model.JobParameters) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/search/async", params, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", errors.New("server returned an empty task id")
	}
	return out.TaskID, nil
}

// Status fetches the current status of a task.
func (c *Client) Status(ctx context.Context, taskID string) (model.JobStatus, error) {
	var st model.JobStatus
	err := c.do(ctx, http.MethodGet, "/api/search/tasks/"+url.PathEscape(taskID), nil, &st)
	return st, err
}

// Search runs a blocking search.
func (c *Client) Search(ctx context.Context, params model.JobParameters) (model.SearchResult, error) {
	var res model.SearchResult
	err := c.do(ctx, http.MethodPost, "/api/search", params, &res)
	return res, err
}

// CreateCorpus uploads a corpus.
func (c *Client) CreateCorpus(ctx context.Context, name, text string) (*model.CorpusSummary, error) {
	var out model.CorpusSummary
	if err := c.do(ctx, http.MethodPost, "/api/corpora", model.CreateCorpusRequest{Name: name, Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCorpora returns a page of corpus summaries.
func (c *Client) ListCorpora(ctx context.Context, limit, offset int) ([]*model.CorpusSummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/corpora"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []*model.CorpusSummary
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) credential() (string, error) {
	if c.ts != nil {
		tok, err := c.ts.Token()
		if err != nil {
			return "", fmt.Errorf("obtain token: %w", err)
		}
		return tok.AccessToken, nil
	}
	return c.token, nil
}

func (c *Client) endpoint(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return strings.TrimRight(c.base.String(), "/") + path
	}
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + ref.Path
	u.RawQuery = ref.RawQuery
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.credential()
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.Code == "" {
			apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
