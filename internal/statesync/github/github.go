package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/afero"

	appcfg "github.com/jo-hoe/socialpost/internal/config"
	"github.com/jo-hoe/socialpost/internal/statesync"
)

// Syncer writes the ledger file to a GitHub repository using the REST
// contents API, for runners that have no git checkout to push from.
type Syncer struct {
	cfg  appcfg.GitHubSyncConfig
	fs   afero.Fs
	http *http.Client
}

var _ statesync.Syncer = (*Syncer)(nil)

// New creates a GitHub Syncer with the provided config.
// Uses http.DefaultClient unless a custom client is provided via WithHTTPClient.
func New(cfg appcfg.GitHubSyncConfig, fs afero.Fs) (*Syncer, error) {
	if strings.TrimSpace(cfg.Auth.Token) == "" {
		return nil, fmt.Errorf("github token must not be empty")
	}
	if strings.TrimSpace(cfg.RepositoryOwner) == "" || strings.TrimSpace(cfg.RepositoryName) == "" {
		return nil, fmt.Errorf("repo owner/name must not be empty")
	}
	if strings.TrimSpace(cfg.Branch) == "" {
		return nil, fmt.Errorf("branch must not be empty")
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("path must not be empty")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		cfg.APIBaseURL = "https://api.github.com"
	}
	return &Syncer{
		cfg:  cfg,
		fs:   fs,
		http: http.DefaultClient,
	}, nil
}

// WithHTTPClient allows tests to inject a custom HTTP client (e.g., pointing to httptest.Server).
func (s *Syncer) WithHTTPClient(c *http.Client) *Syncer {
	s.http = c
	return s
}

func (s *Syncer) Name() string { return "github" }

// Sync uploads the first path of req to the configured repository path. The
// upload is skipped when the remote file already has the same content.
func (s *Syncer) Sync(ctx context.Context, req statesync.Request) error {
	if len(req.Paths) == 0 {
		return nil
	}
	local, err := afero.ReadFile(s.fs, req.Paths[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", req.Paths[0], err)
	}

	current, err := s.getFile(ctx)
	if err != nil {
		return err
	}
	if current != nil && bytes.Equal(current.decoded, local) {
		return nil
	}

	commitMsg, err := statesync.RenderCommitMessage(s.cfg.CommitMessageTemplate, req)
	if err != nil {
		return err
	}

	// Build payload per GitHub API: Create or update file contents
	// https://docs.github.com/en/rest/repos/contents?apiVersion=2022-11-28#create-or-update-file-contents
	payload := createFilePayload{
		Message: commitMsg,
		Content: base64.StdEncoding.EncodeToString(local),
		Branch:  s.cfg.Branch,
	}
	if current != nil {
		payload.SHA = current.SHA
	}
	if s.cfg.AuthorName != "" || s.cfg.AuthorEmail != "" {
		id := &gitIdentity{Name: s.cfg.AuthorName, Email: s.cfg.AuthorEmail}
		payload.Committer = id
		payload.Author = id
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	httpReq, err := s.newRequest(ctx, http.MethodPut, s.contentsURL(false), bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Successful create returns 201; update returns 200.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return apiStatusError(resp)
	}
	return nil
}

type remoteFile struct {
	SHA     string
	decoded []byte
}

// getFile returns the current file on the branch, or nil when it does not exist yet.
func (s *Syncer) getFile(ctx context.Context) (*remoteFile, error) {
	httpReq, err := s.newRequest(ctx, http.MethodGet, s.contentsURL(true), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiStatusError(resp)
	}
	var out contentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return &remoteFile{SHA: out.SHA, decoded: decoded}, nil
}

func (s *Syncer) newRequest(ctx context.Context, method, u string, body *bytes.Reader) (*http.Request, error) {
	var httpReq *http.Request
	var err error
	if body != nil {
		httpReq, err = http.NewRequestWithContext(ctx, method, u, body)
	} else {
		httpReq, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.Auth.Token)
	httpReq.Header.Set("Accept", "application/vnd.github+json")
	// Use the API version mentioned in docs
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return httpReq, nil
}

// contentsURL is {apiBase}/repos/{owner}/{repo}/contents/{path}, with ?ref= for reads.
func (s *Syncer) contentsURL(withRef bool) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s", strings.TrimRight(s.cfg.APIBaseURL, "/"), s.cfg.RepositoryOwner, s.cfg.RepositoryName, strings.TrimPrefix(s.cfg.Path, "/"))
	if withRef {
		u += "?ref=" + url.QueryEscape(s.cfg.Branch)
	}
	return u
}

func apiStatusError(resp *http.Response) error {
	var apiErr apiError
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Message != "" {
		return fmt.Errorf("github api: status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("github api: status %d", resp.StatusCode)
}

// Payload and response structures

type gitIdentity struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type createFilePayload struct {
	Message   string       `json:"message"`
	Content   string       `json:"content"` // base64
	SHA       string       `json:"sha,omitempty"`
	Branch    string       `json:"branch,omitempty"`
	Committer *gitIdentity `json:"committer,omitempty"`
	Author    *gitIdentity `json:"author,omitempty"`
}

type contentResponse struct {
	SHA     string `json:"sha"`
	Content string `json:"content"`
}

type apiError struct {
	Message string `json:"message"`
}
