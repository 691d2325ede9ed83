package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteLedger_Lifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "published.db")
	l, err := OpenSQLite(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, l.Add(ctx, "p2"))
	require.NoError(t, l.Add(ctx, "p1"))
	require.NoError(t, l.Add(ctx, "p1"))
	assert.Equal(t, []string{"p1", "p2"}, l.IDs())
	assert.Equal(t, dbPath, l.Path())

	at, err := l.PublishedAt("p1")
	require.NoError(t, err)
	assert.True(t, at.After(before))

	_, err = l.PublishedAt("missing")
	require.Error(t, err)
	require.NoError(t, l.Close())

	// state survives reopen
	again, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	defer again.Close()
	assert.True(t, again.Contains("p1"))
	assert.True(t, again.Contains("p2"))
	assert.False(t, again.Contains("p3"))
}

func TestOpen_SelectsBackend(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(afero.NewOsFs(), "json", filepath.Join(dir, "published.json"))
	require.NoError(t, err)
	assert.IsType(t, &JSONLedger{}, l)
	require.NoError(t, l.Close())

	l, err = Open(afero.NewOsFs(), "sqlite", filepath.Join(dir, "published.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLedger{}, l)
	require.NoError(t, l.Close())

	_, err = Open(afero.NewOsFs(), "redis", "x")
	require.Error(t, err)
}
