// Package graph is a minimal client for the Instagram and Facebook Graph API
// endpoints used to publish a photo post.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jo-hoe/socialpost/internal/common"
	"github.com/jo-hoe/socialpost/internal/config"
)

const (
	// Headers
	headerContentType = "Content-Type"
	headerAccept      = "Accept"

	// Form fields
	fieldAccessToken = "access_token"
	fieldImageURL    = "image_url"
	fieldCaption     = "caption"
	fieldCreationID  = "creation_id"
	fieldURL         = "url"

	// Timeouts and limits
	defaultTimeout    = 60 * time.Second
	errorSnippetLimit = 400
)

// Client calls the Graph API over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
}

// New creates a Graph API client from config.
func New(cfg config.GraphConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = common.DefaultGraphBaseURL
	}
	version := strings.Trim(cfg.Version, "/")
	if version == "" {
		version = common.DefaultGraphVersion
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		version:    version,
	}
}

// WithHTTPClient allows tests to inject a custom HTTP client (e.g., pointing to httptest.Server).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// CreateContainer stages an image post on the Instagram account and returns the container id.
func (c *Client) CreateContainer(ctx context.Context, instagramID, imageURL, caption, token string) (string, error) {
	form := url.Values{}
	form.Set(fieldImageURL, imageURL)
	form.Set(fieldCaption, caption)
	form.Set(fieldAccessToken, token)
	return c.post(ctx, instagramID, common.GraphEdgeMedia, form)
}

// PublishContainer publishes a staged container and returns the media id.
func (c *Client) PublishContainer(ctx context.Context, instagramID, creationID, token string) (string, error) {
	form := url.Values{}
	form.Set(fieldCreationID, creationID)
	form.Set(fieldAccessToken, token)
	return c.post(ctx, instagramID, common.GraphEdgeMediaPublish, form)
}

// PublishPhoto posts a photo with caption to a Facebook page and returns the post id.
func (c *Client) PublishPhoto(ctx context.Context, pageID, imageURL, caption, token string) (string, error) {
	form := url.Values{}
	form.Set(fieldURL, imageURL)
	form.Set(fieldCaption, caption)
	form.Set(fieldAccessToken, token)
	return c.post(ctx, pageID, common.GraphEdgePhotos, form)
}

func (c *Client) post(ctx context.Context, node, edge string, form url.Values) (string, error) {
	if strings.TrimSpace(node) == "" {
		return "", errors.New("graph node id is empty")
	}
	u, err := url.JoinPath(c.baseURL, c.version, node, edge)
	if err != nil {
		return "", fmt.Errorf("join url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(headerContentType, common.ContentTypeForm)
	req.Header.Set(headerAccept, common.ContentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &APIError{Edge: edge, Err: redact(err, form.Get(fieldAccessToken))}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &APIError{Edge: edge, StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	var out idResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &APIError{Edge: edge, StatusCode: resp.StatusCode, Message: "parse response", Err: err}
	}
	id := out.ID
	if id == "" {
		id = out.PostID
	}
	if id == "" {
		return "", &APIError{Edge: edge, StatusCode: resp.StatusCode, Message: "response carries no id"}
	}
	return id, nil
}

// APIError is any failed Graph API request: transport errors have a zero
// StatusCode and Err set, HTTP errors carry the status and the API message.
type APIError struct {
	Edge       string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s", e.Edge)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

func errorMessage(body []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		if env.Error.Type != "" {
			return fmt.Sprintf("%s (%s, code %d)", env.Error.Message, env.Error.Type, env.Error.Code)
		}
		return env.Error.Message
	}
	return truncate(strings.TrimSpace(string(body)), errorSnippetLimit)
}

// redact keeps the access token out of url.Error strings.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "REDACTED"))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Graph API response types

type idResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}
