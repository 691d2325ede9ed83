package payload

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/jo-hoe/socialpost/internal/common"
)

// Entry is one file found in the payload directory. Err is set when the file
// could not be read or decoded; Payload is then the zero value.
type Entry struct {
	Path    string
	Payload Payload
	Err     error
}

// Store enumerates payload files and resolves the local images they reference.
type Store struct {
	fs           afero.Fs
	dir          string
	imageRoot    string
	toPublishDir string
}

// NewStore creates a Store reading dir through fs. Images are looked up under
// imageRoot/<account>/<toPublishDir>.
func NewStore(fs afero.Fs, dir, imageRoot, toPublishDir string) *Store {
	if toPublishDir == "" {
		toPublishDir = common.DefaultToPublishDir
	}
	return &Store{fs: fs, dir: dir, imageRoot: imageRoot, toPublishDir: toPublishDir}
}

// Dir returns the payload directory.
func (s *Store) Dir() string { return s.dir }

// List returns every *.json file in the payload directory. A missing directory
// yields no entries. Per-file problems are reported on the entry, never as the
// returned error.
func (s *Store) List() ([]Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read payload dir: %w", err)
	}
	var out []Entry
	for _, fi := range infos {
		if fi.IsDir() || !strings.EqualFold(filepath.Ext(fi.Name()), common.PayloadExtension) {
			continue
		}
		p := filepath.Join(s.dir, fi.Name())
		out = append(out, s.read(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) read(p string) Entry {
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		return Entry{Path: p, Err: fmt.Errorf("read payload: %w", err)}
	}
	pl, err := Decode(data)
	if err != nil {
		return Entry{Path: p, Err: err}
	}
	return Entry{Path: p, Payload: pl}
}

// LocalImagePath maps the payload's image URL onto the pending image on disk.
// It returns "" when the URL carries no file name.
func (s *Store) LocalImagePath(p Payload) string {
	name := imageFileName(p.ImageURL)
	if name == "" || strings.TrimSpace(p.Account) == "" {
		return ""
	}
	return filepath.Join(s.imageRoot, p.Account, s.toPublishDir, name)
}

// Remove deletes a single file. A file that is already gone is not an error.
func (s *Store) Remove(p string) error {
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func imageFileName(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	base := path.Base(u.EscapedPath())
	if base == "." || base == "/" || base == "" {
		return ""
	}
	base, err = url.PathUnescape(base)
	if err != nil {
		return ""
	}
	// Never let a crafted URL escape the image folder.
	if strings.ContainsAny(base, `/\`) || base == ".." {
		return ""
	}
	return base
}
