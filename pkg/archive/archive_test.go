package archive

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapFS(files ...string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for i := 0; i+1 < len(files); i += 2 {
		fsys[files[i]] = &fstest.MapFile{Data: []byte(files[i+1])}
	}
	return fsys
}

func testFS() fstest.MapFS {
	return mapFS(
		"data/global/palette/ACT1/Pal.PL2", "pal",
		"data/global/monsters/ZM/COF/palshift.dat", "shift",
	)
}

func TestArchiveCaseInsensitive(t *testing.T) {
	a, err := OpenFS(Data, testFS())
	require.NoError(t, err)

	assert.True(t, a.Contains(ActPalettePath))
	assert.True(t, a.Contains("DATA/GLOBAL/PALETTE/act1/pal.pl2"))
	assert.False(t, a.Contains("nonexistent/file/path.txt"))

	data, err := a.Read(PalShiftPath("zm"))
	require.NoError(t, err)
	assert.Equal(t, []byte("shift"), data)

	assert.Equal(t, []string{
		"data/global/monsters/zm/cof/palshift.dat",
		"data/global/palette/act1/pal.pl2",
	}, a.List())
}

func TestArchiveReadMissing(t *testing.T) {
	a, err := OpenFS(Data, testFS())
	require.NoError(t, err)

	_, err = a.Read(FontPath)
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestSetFallback(t *testing.T) {
	data, err := OpenFS(Data, mapFS(
		"data/global/excel/AutoMap.txt", "classic",
		"data/local/font/latin/font16.DC6", "font",
	))
	require.NoError(t, err)
	exp, err := OpenFS(Expansion, mapFS("data/global/excel/AutoMap.txt", "expansion"))
	require.NoError(t, err)

	s := NewSet()
	s.Add(data)
	s.Add(exp)

	got, err := s.Read(Expansion, AutoMapPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("expansion"), got)

	got, err = s.ReadFirst(FontPath, Expansion, Data)
	require.NoError(t, err)
	assert.Equal(t, []byte("font"), got)

	_, err = s.Read(Patch, FontPath)
	assert.ErrorIs(t, err, ErrArchiveNotFound)

	_, err = s.ReadFirst(MaxiMapPath, Patch, Expansion, Data)
	assert.ErrorIs(t, err, ErrFileNotFound)

	// second read is served from the cache
	_, err = s.Read(Expansion, AutoMapPath)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CacheStats().Hits)

	// without names every archive is tried
	got, err = s.ReadFirst(FontPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("font"), got)
}

func TestCacheEvicts(t *testing.T) {
	c := NewCache(10)
	c.Set("a", []byte("1234"))
	c.Set("b", []byte("5678"))

	// touching a leaves b as the oldest
	_, ok := c.Get("a")
	require.True(t, ok)
	c.Set("c", []byte("90"+"12"))

	_, ok = c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, CacheStats{Hits: 2, Misses: 1, Entries: 2, Bytes: 8}, c.Stats())

	c.Set("big", make([]byte, 11))
	_, ok = c.Get("big")
	assert.False(t, ok)

	c.Set("a", []byte("1"))
	assert.Equal(t, 5, c.Stats().Bytes)

	c.Clear()
	assert.Equal(t, CacheStats{Hits: 2, Misses: 2}, c.Stats())
}

func TestSetCloneAndRelease(t *testing.T) {
	data, err := OpenFS(Data, mapFS(`data/local/font/latin/font16.dc6`, "font"))
	require.NoError(t, err)

	s := NewSet()
	s.Add(data)
	_, err = s.ReadFirst(FontPath)
	require.NoError(t, err)
	assert.Equal(t, 1, s.CacheStats().Entries)

	c := s.Clone()
	assert.True(t, c.Has(Data))
	assert.Equal(t, CacheStats{}, c.CacheStats())
	got, err := c.ReadFirst(FontPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("font"), got)
	assert.Equal(t, 1, s.CacheStats().Entries)

	s.ReleaseCache()
	assert.Zero(t, s.CacheStats().Entries)
	assert.True(t, s.Has(Data))
}

func TestOpenGameDir(t *testing.T) {
	root := t.TempDir()

	_, err := OpenGameDir(root)
	assert.True(t, errors.Is(err, ErrArchiveNotFound), "data archive is required")

	dir := filepath.Join(root, Data, "data", "global", "palette", "ACT1")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Pal.PL2"), []byte("pal"), 0o644))

	s, err := OpenGameDir(root)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Has(Data))
	assert.False(t, s.Has(Expansion))

	got, err := s.Read(Data, ActPalettePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("pal"), got)
}

func TestPalettePath(t *testing.T) {
	assert.Equal(t, ActPalettePath, PalettePath(1))
	assert.Equal(t, `data\global\palette\ACT4\Pal.PL2`, PalettePath(4))
}
