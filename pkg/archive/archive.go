// Package archive provides read access to the game's named asset archives.
//
// Archives are extracted asset trees; logical paths inside them are
// backslash-separated and case-insensitive, e.g.
// data\global\palette\ACT1\Pal.PL2.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/Faultbox/d2sight/pkg/encoding"
)

// Archive errors.
var (
	ErrArchiveNotFound = errors.New("archive not found")
	ErrFileNotFound    = errors.New("file not found")
)

// Archive represents an opened asset archive.
type Archive struct {
	name     string
	fsys     fs.FS
	fileList map[string]string
}

// Open opens the extracted archive rooted at dir.
func Open(name, dir string) (*Archive, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveNotFound, name, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s: %s is not a directory", ErrArchiveNotFound, name, dir)
	}
	return OpenFS(name, os.DirFS(dir))
}

// OpenFS opens an archive backed by an arbitrary file system.
func OpenFS(name string, fsys fs.FS) (*Archive, error) {
	a := &Archive{
		name:     name,
		fsys:     fsys,
		fileList: make(map[string]string),
	}

	if err := a.readFileTable(); err != nil {
		return nil, fmt.Errorf("reading file table of %s: %w", name, err)
	}

	return a, nil
}

func (a *Archive) readFileTable() error {
	return fs.WalkDir(a.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		a.fileList[encoding.NormalizePath(path)] = path
		return nil
	})
}

// Name returns the archive name.
func (a *Archive) Name() string {
	return a.name
}

// List returns all normalized file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for path := range a.fileList {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[encoding.NormalizePath(path)]
	return ok
}

// Read reads a file from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	name, ok := a.fileList[encoding.NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrFileNotFound, path, a.name)
	}

	data, err := fs.ReadFile(a.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s from %s: %w", path, a.name, err)
	}
	return data, nil
}
