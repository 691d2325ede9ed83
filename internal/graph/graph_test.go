package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jo-hoe/socialpost/internal/config"
)

func TestGraph_CreateAndPublishContainer(t *testing.T) {
	var paths []string
	var forms []map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			http.Error(w, "content type "+ct, http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		paths = append(paths, r.URL.Path)
		f := map[string]string{}
		for k := range r.PostForm {
			f[k] = r.PostForm.Get(k)
		}
		forms = append(forms, f)
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/media"):
			_, _ = w.Write([]byte(`{"id":"container-1"}`))
		case strings.HasSuffix(r.URL.Path, "/media_publish"):
			_, _ = w.Write([]byte(`{"id":"media-1"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := New(config.GraphConfig{BaseURL: ts.URL, Version: "v23.0"})
	ctx := context.Background()

	cid, err := c.CreateContainer(ctx, "ig-1", "http://x/img1.png", "hi", "tok")
	if err != nil {
		t.Fatalf("CreateContainer: %v", err)
	}
	if cid != "container-1" {
		t.Fatalf("container id = %q", cid)
	}
	mid, err := c.PublishContainer(ctx, "ig-1", cid, "tok")
	if err != nil {
		t.Fatalf("PublishContainer: %v", err)
	}
	if mid != "media-1" {
		t.Fatalf("media id = %q", mid)
	}

	if len(paths) != 2 || paths[0] != "/v23.0/ig-1/media" || paths[1] != "/v23.0/ig-1/media_publish" {
		t.Fatalf("paths = %v", paths)
	}
	if forms[0]["image_url"] != "http://x/img1.png" || forms[0]["caption"] != "hi" || forms[0]["access_token"] != "tok" {
		t.Fatalf("media form = %v", forms[0])
	}
	if forms[1]["creation_id"] != "container-1" || forms[1]["access_token"] != "tok" {
		t.Fatalf("publish form = %v", forms[1])
	}
}

func TestGraph_PublishPhoto(t *testing.T) {
	var seenPath, seenURL string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		seenPath = r.URL.Path
		seenURL = r.PostForm.Get("url")
		_, _ = w.Write([]byte(`{"id":"photo-1","post_id":"page_post-1"}`))
	}))
	defer ts.Close()

	c := New(config.GraphConfig{BaseURL: ts.URL + "/"})
	id, err := c.PublishPhoto(context.Background(), "page-1", "http://x/img1.png", "hi", "tok")
	if err != nil {
		t.Fatalf("PublishPhoto: %v", err)
	}
	if id != "photo-1" {
		t.Fatalf("photo id = %q", id)
	}
	if seenPath != "/v23.0/page-1/photos" || seenURL != "http://x/img1.png" {
		t.Fatalf("request mismatch: %s %s", seenPath, seenURL)
	}
}

func TestGraph_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer ts.Close()

	c := New(config.GraphConfig{BaseURL: ts.URL})
	_, err := c.PublishContainer(context.Background(), "ig-1", "c-1", "tok")
	if err == nil {
		t.Fatalf("expected error for non-200 response")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || !strings.Contains(apiErr.Message, "Invalid OAuth") {
		t.Fatalf("api error mismatch: %+v", apiErr)
	}
	if strings.Contains(err.Error(), "tok") {
		t.Fatalf("error leaks token: %v", err)
	}
}

func TestGraph_MissingID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	c := New(config.GraphConfig{BaseURL: ts.URL})
	if _, err := c.CreateContainer(context.Background(), "ig-1", "u", "c", "tok"); err == nil {
		t.Fatalf("expected error for response without id")
	}
}

func TestGraph_EmptyNode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("server should not be called without a node id")
	}))
	defer ts.Close()

	c := New(config.GraphConfig{BaseURL: ts.URL})
	if _, err := c.PublishPhoto(context.Background(), "", "u", "c", "tok"); err == nil {
		t.Fatalf("expected error for empty node id")
	}
}

func TestGraph_ContextCancel(t *testing.T) {
	var started int32
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.StoreInt32(&started, 1)
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()
	defer close(release)

	c := New(config.GraphConfig{BaseURL: ts.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.CreateContainer(ctx, "ig-1", "u", "c", "tok")
	if err == nil {
		t.Fatalf("expected context cancellation error")
	}
	if atomic.LoadInt32(&started) == 0 {
		t.Fatalf("server was not invoked; test invalid")
	}
}

func TestRedact(t *testing.T) {
	err := redact(errors.New(`Post "http://h/?access_token=secret": dial tcp`), "secret")
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("token not redacted: %v", err)
	}
}
