package common

import (
	"strings"
	"testing"
)

func TestConstantsValues(t *testing.T) {
	if ContentTypeJSON != "application/json" {
		t.Fatalf("ContentTypeJSON = %q", ContentTypeJSON)
	}
	if ContentTypeForm != "application/x-www-form-urlencoded" {
		t.Fatalf("ContentTypeForm = %q", ContentTypeForm)
	}
	if GraphEdgeMedia != "media" || GraphEdgeMediaPublish != "media_publish" || GraphEdgePhotos != "photos" {
		t.Fatalf("graph edges mismatch: %q, %q, %q", GraphEdgeMedia, GraphEdgeMediaPublish, GraphEdgePhotos)
	}
	if !strings.HasPrefix(DefaultGraphVersion, "v") {
		t.Fatalf("graph version should start with v: %q", DefaultGraphVersion)
	}
	for _, s := range []string{EnvSuffixAccessToken, EnvSuffixInstagramID, EnvSuffixFacebookID} {
		if !strings.HasPrefix(s, "_") || strings.ToUpper(s) != s {
			t.Fatalf("env suffix should be upper case with leading underscore: %q", s)
		}
	}
	if DefaultRetryAttempts <= 0 {
		t.Fatalf("defaults should be positive")
	}
	if GitExecutable == "" || GitRemoteName == "" {
		t.Fatalf("git constants should be non-empty")
	}
	if PayloadExtension != ".json" || DefaultLedgerFile != "published.json" {
		t.Fatalf("file names mismatch")
	}
}
