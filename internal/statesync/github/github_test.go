package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	appcfg "github.com/jo-hoe/socialpost/internal/config"
	"github.com/jo-hoe/socialpost/internal/statesync"
)

func testConfig(apiBase string) appcfg.GitHubSyncConfig {
	return appcfg.GitHubSyncConfig{
		RepositoryOwner: "org",
		RepositoryName:  "repo",
		Branch:          "main",
		Path:            "scripts/published.json",
		APIBaseURL:      apiBase,
		AuthorName:      "Bot",
		AuthorEmail:     "bot@example.com",
		Auth:            appcfg.GitHubAuthConfig{Token: "token123"},
	}
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig("")
	cfg.Auth.Token = ""
	if _, err := New(cfg, afero.NewMemMapFs()); err == nil {
		t.Fatalf("expected error for missing token")
	}
	cfg = testConfig("")
	cfg.Path = ""
	if _, err := New(cfg, afero.NewMemMapFs()); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestSync_UpdatesExistingFile(t *testing.T) {
	var put map[string]any
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.Header.Get("Authorization") != "Bearer token123" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/repos/org/repo/contents/scripts/published.json") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("ref") != "main" {
				http.Error(w, "ref", http.StatusBadRequest)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sha":     "oldsha",
				"content": base64.StdEncoding.EncodeToString([]byte(`["p0"]`)),
			})
		case http.MethodPut:
			defer r.Body.Close()
			_ = json.NewDecoder(r.Body).Decode(&put)
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(map[string]any{"commit": map[string]any{"sha": "newsha"}})
		}
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/work/published.json", []byte(`["p0","p1"]`), 0o644); err != nil {
		t.Fatalf("write ledger: %v", err)
	}
	s, err := New(testConfig(srv.URL), fs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.WithHTTPClient(srv.Client())
	if s.Name() != "github" {
		t.Fatalf("Name() = %q", s.Name())
	}

	err = s.Sync(context.Background(), statesync.Request{Paths: []string{"/work/published.json"}, PublishID: "p1", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(methods) != 2 || methods[0] != http.MethodGet || methods[1] != http.MethodPut {
		t.Fatalf("methods = %v", methods)
	}
	if put["sha"] != "oldsha" || put["branch"] != "main" {
		t.Fatalf("put payload mismatch: %+v", put)
	}
	if msg, _ := put["message"].(string); !strings.Contains(msg, "p1") {
		t.Fatalf("commit message mismatch: %v", put["message"])
	}
	raw, _ := base64.StdEncoding.DecodeString(put["content"].(string))
	if string(raw) != `["p0","p1"]` {
		t.Fatalf("content mismatch: %s", raw)
	}
}

func TestSync_CreatesMissingFileAndSkipsUnchanged(t *testing.T) {
	var stored []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if stored == nil {
				http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"sha": "s1", "content": base64.StdEncoding.EncodeToString(stored)})
		case http.MethodPut:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["sha"]; ok {
				http.Error(w, "unexpected sha", http.StatusConflict)
				return
			}
			stored, _ = base64.StdEncoding.DecodeString(body["content"].(string))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/published.json", []byte(`["p1"]`), 0o644)
	s, err := New(testConfig(srv.URL), fs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.WithHTTPClient(srv.Client())

	req := statesync.Request{Paths: []string{"/published.json"}, PublishID: "p1"}
	if err := s.Sync(context.Background(), req); err != nil {
		t.Fatalf("create Sync: %v", err)
	}
	if string(stored) != `["p1"]` {
		t.Fatalf("stored = %s", stored)
	}
	// second sync sees identical content and does not PUT (a PUT without sha would 409)
	if err := s.Sync(context.Background(), req); err != nil {
		t.Fatalf("idempotent Sync: %v", err)
	}
}

func TestSync_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Resource not accessible by integration"}`))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/published.json", []byte(`[]`), 0o644)
	s, _ := New(testConfig(srv.URL), fs)
	s.WithHTTPClient(srv.Client())

	err := s.Sync(context.Background(), statesync.Request{Paths: []string{"/published.json"}})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
