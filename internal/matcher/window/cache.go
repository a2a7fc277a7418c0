package window

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/pkg/palette"
)

// Cache file names inside one matcher directory.
const (
	TreeFile     = "tree_data.bin"
	MatricesFile = "matrices_data.bin"
	PalettesFile = "matrices_palettes.bin"
)

// Cache errors.
var (
	ErrCacheMissing = errors.New("matcher cache missing")
	ErrCacheCorrupt = errors.New("matcher cache corrupt")
)

// Cache stores matchers as three flat files per name under a root
// directory.
type Cache struct {
	root string
}

// NewCache returns a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{root: dir}
}

// Dir returns the directory of a named matcher.
func (c *Cache) Dir(name string) string {
	return filepath.Join(c.root, name)
}

// Has reports whether all three files of a named matcher exist.
func (c *Cache) Has(name string) bool {
	for _, f := range []string{TreeFile, MatricesFile, PalettesFile} {
		if _, err := os.Stat(filepath.Join(c.Dir(name), f)); err != nil {
			return false
		}
	}
	return true
}

// Save writes the tree, its windows and its palettes.
func (c *Cache) Save(name string, t *Tree) error {
	dir := c.Dir(name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	windows := make([]byte, 0, len(t.bank.Windows)*Size)
	for i := range t.bank.Windows {
		windows = append(windows, t.bank.Windows[i][:]...)
	}

	files := []struct {
		name string
		data []byte
	}{
		{TreeFile, t.data},
		{MatricesFile, windows},
		{PalettesFile, palette.Bytes(t.bank.Palettes)},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f.name), f.data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	return nil
}

// Load reads a named matcher. A missing file yields ErrCacheMissing; a
// truncated or inconsistent one yields ErrCacheCorrupt.
func (c *Cache) Load(name string) (*Tree, error) {
	dir := c.Dir(name)

	read := func(f string) ([]byte, error) {
		data, err := os.ReadFile(filepath.Join(dir, f))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrCacheMissing, name, f)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		return data, nil
	}

	treeData, err := read(TreeFile)
	if err != nil {
		return nil, err
	}
	windowData, err := read(MatricesFile)
	if err != nil {
		return nil, err
	}
	paletteData, err := read(PalettesFile)
	if err != nil {
		return nil, err
	}

	if len(treeData) == 0 || len(windowData)%Size != 0 {
		return nil, fmt.Errorf("%w: %s: tree %d bytes, windows %d bytes", ErrCacheCorrupt, name, len(treeData), len(windowData))
	}
	palettes, err := palette.ExtractPalettes(paletteData)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheCorrupt, name, err)
	}

	windows := make([]matrix.Window, len(windowData)/Size)
	for i := range windows {
		copy(windows[i][:], windowData[i*Size:])
	}

	t := &Tree{data: treeData, bank: Bank{Windows: windows, Palettes: palettes}}
	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheCorrupt, name, err)
	}
	return t, nil
}

// LoadOrBuild loads a named matcher, building and storing it when the cache
// is missing or corrupt.
func (c *Cache) LoadOrBuild(name string, build func() (*Tree, error)) (*Tree, error) {
	t, err := c.Load(name)
	if err == nil {
		logger.Debug("matcher cache hit", zap.String("name", name))
		return t, nil
	}
	if !errors.Is(err, ErrCacheMissing) && !errors.Is(err, ErrCacheCorrupt) {
		return nil, err
	}
	logger.Info("rebuilding matcher", zap.String("name", name), zap.Error(err))

	t, err = build()
	if err != nil {
		return nil, fmt.Errorf("building matcher %s: %w", name, err)
	}
	if err := c.Save(name, t); err != nil {
		return nil, fmt.Errorf("saving matcher %s: %w", name, err)
	}
	return t, nil
}
