// Package statesync makes a changed ledger durable and visible to the next run.
package statesync

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// Syncer persists the given files somewhere the next invocation will read them.
// Implementations must be idempotent: syncing unchanged files succeeds.
type Syncer interface {
	Name() string
	Sync(ctx context.Context, req Request) error
}

// Request describes one sync after a ledger change.
type Request struct {
	Paths     []string // files to persist, usually just the ledger
	PublishID string   // post that triggered the sync; empty for a catch-up sync
	Timestamp time.Time
}

// DefaultCommitMessageTemplate is used when no template is configured.
const DefaultCommitMessageTemplate = `{{ if .PublishID }}update published.json after {{ .PublishID }}{{ else }}update published.json{{ end }}`

// Nop keeps the ledger local only.
type Nop struct{}

func (Nop) Name() string { return "none" }

func (Nop) Sync(context.Context, Request) error { return nil }

// RenderCommitMessage renders tplStr (or the default) with the request fields.
func RenderCommitMessage(tplStr string, req Request) (string, error) {
	s := strings.TrimSpace(tplStr)
	if s == "" {
		s = DefaultCommitMessageTemplate
	}
	tpl, err := template.New("commit").Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse commit template: %w", err)
	}
	data := map[string]any{
		"PublishID": req.PublishID,
		"Timestamp": req.Timestamp,
		"Paths":     req.Paths,
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render commit message: %w", err)
	}
	msg := strings.TrimSpace(buf.String())
	if msg == "" {
		msg = "update published.json"
	}
	return msg, nil
}
