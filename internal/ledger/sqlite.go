package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jo-hoe/socialpost/internal/common"
)

// SQLiteLedger keeps published ids in a SQLite table. The id set is cached in
// memory at open; the table is written on every Add.
type SQLiteLedger struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
	ids  map[string]struct{}
}

var _ Ledger = (*SQLiteLedger)(nil)

func OpenSQLite(path string) (*SQLiteLedger, error) {
	// Busy timeout to avoid SQLITE_BUSY while a sync reads the file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, common.SQLiteBusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	l := &SQLiteLedger{db: db, path: path, ids: make(map[string]struct{})}
	if err := l.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS published (
		pub_id TEXT PRIMARY KEY,
		published_at TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("%w: migrate schema: %v", ErrCorrupt, err)
	}
	return nil
}

func (l *SQLiteLedger) load() error {
	rows, err := l.db.Query(`SELECT pub_id FROM published`)
	if err != nil {
		return fmt.Errorf("%w: query published: %v", ErrCorrupt, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("%w: scan published: %v", ErrCorrupt, err)
		}
		l.ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: read published: %v", ErrCorrupt, err)
	}
	return nil
}

func (l *SQLiteLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

func (l *SQLiteLedger) Add(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyID
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO published (pub_id, published_at) VALUES (?, ?) ON CONFLICT(pub_id) DO NOTHING`,
		id, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert published: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

// PublishedAt returns when id was recorded.
func (l *SQLiteLedger) PublishedAt(id string) (time.Time, error) {
	var ts string
	if err := l.db.QueryRow(`SELECT published_at FROM published WHERE pub_id = ?`, id).Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("publish id %q not found", id)
		}
		return time.Time{}, fmt.Errorf("scan published: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse published_at: %w", err)
	}
	return t, nil
}

func (l *SQLiteLedger) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (l *SQLiteLedger) Path() string { return l.path }

func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
