package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// JSONLedger keeps the ledger as a sorted JSON array of ids.
type JSONLedger struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
	ids  map[string]struct{}
}

var _ Ledger = (*JSONLedger)(nil)

// OpenJSON loads the ledger at path. A missing file is an empty ledger; a file
// that exists but cannot be read or decoded is an error, never silently reset.
func OpenJSON(fs afero.Fs, path string) (*JSONLedger, error) {
	l := &JSONLedger{fs: fs, path: path, ids: make(map[string]struct{})}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("%w: %s: file is empty", ErrCorrupt, path)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	for _, id := range ids {
		l.ids[id] = struct{}{}
	}
	return l, nil
}

func (l *JSONLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// Add records id and rewrites the file. Adding a known id does not touch the file.
func (l *JSONLedger) Add(_ context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return nil
	}
	l.ids[id] = struct{}{}
	if err := l.writeLocked(); err != nil {
		delete(l.ids, id)
		return err
	}
	return nil
}

func (l *JSONLedger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked()
}

func (l *JSONLedger) Path() string { return l.path }

func (l *JSONLedger) Close() error { return nil }

func (l *JSONLedger) sortedLocked() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// writeLocked replaces the ledger file via a temp file and rename so a crash
// mid-write leaves either the old or the new ledger.
func (l *JSONLedger) writeLocked() error {
	b, err := json.MarshalIndent(l.sortedLocked(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	b = append(b, '\n')
	dir := filepath.Dir(l.path)
	if err := l.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure ledger dir: %w", err)
	}
	tmp, err := afero.TempFile(l.fs, dir, ".published-*.tmp")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := l.fs.Rename(tmpName, l.path); err != nil {
		_ = l.fs.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
