package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenJSON_MissingFileIsEmpty(t *testing.T) {
	l, err := OpenJSON(afero.NewMemMapFs(), "/scripts/published.json")
	require.NoError(t, err)
	assert.Empty(t, l.IDs())
	assert.False(t, l.Contains("p1"))
}

func TestOpenJSON_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/published.json", []byte(`{"not":"a list"}`), 0o644))
	_, err := OpenJSON(fs, "/published.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestOpenJSON_EmptyFileIsCorrupt(t *testing.T) {
	for _, content := range []string{"", " \n\t"} {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "/published.json", []byte(content), 0o644))
		_, err := OpenJSON(fs, "/published.json")
		require.Error(t, err, "content %q", content)
		assert.True(t, errors.Is(err, ErrCorrupt))
	}
}

func TestJSONLedger_AddPersistsSorted(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/scripts/published.json"
	require.NoError(t, afero.WriteFile(fs, path, []byte(`["p2"]`), 0o644))

	l, err := OpenJSON(fs, path)
	require.NoError(t, err)
	assert.True(t, l.Contains("p2"))

	ctx := context.Background()
	require.NoError(t, l.Add(ctx, "p3"))
	require.NoError(t, l.Add(ctx, "p1"))
	assert.Equal(t, []string{"p1", "p2", "p3"}, l.IDs())

	raw, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var onDisk []string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, []string{"p1", "p2", "p3"}, onDisk)

	// reopened ledger sees the same set
	again, err := OpenJSON(fs, path)
	require.NoError(t, err)
	assert.Equal(t, l.IDs(), again.IDs())

	// no temp files left behind
	infos, err := afero.ReadDir(fs, "/scripts")
	require.NoError(t, err)
	assert.Len(t, infos, 1)
}

func TestJSONLedger_AddExistingDoesNotWrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/published.json", []byte(`["p1"]`), 0o644))
	l, err := OpenJSON(fs, "/published.json")
	require.NoError(t, err)

	ro := afero.NewReadOnlyFs(fs)
	l.fs = ro
	require.NoError(t, l.Add(context.Background(), "p1"))
}

func TestJSONLedger_WriteFailureKeepsSetUnchanged(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	l, err := OpenJSON(fs, "/published.json")
	require.NoError(t, err)

	require.Error(t, l.Add(context.Background(), "p1"))
	assert.False(t, l.Contains("p1"))
}

func TestJSONLedger_EmptyID(t *testing.T) {
	l, err := OpenJSON(afero.NewMemMapFs(), "/published.json")
	require.NoError(t, err)
	assert.ErrorIs(t, l.Add(context.Background(), " "), ErrEmptyID)
}
