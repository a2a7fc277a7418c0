package agent

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/d2sight/internal/input"
	"github.com/Faultbox/d2sight/internal/mapmatch"
	"github.com/Faultbox/d2sight/internal/matcher/window"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/internal/mosaic"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/geom"
	"github.com/Faultbox/d2sight/pkg/palette"
)

func TestPathDiffs(t *testing.T) {
	assert.Nil(t, PathDiffs([]geom.PointU16{geom.Pt(1, 1)}))
	assert.Equal(t,
		[]geom.PointI32{{Row: 0, Col: 1}, {Row: -1, Col: 0}},
		PathDiffs([]geom.PointU16{geom.Pt(5, 5), geom.Pt(5, 6), geom.Pt(4, 6)}))
}

func straight(from geom.PointU16, d geom.Direction, n int) []geom.PointU16 {
	return append([]geom.PointU16{from}, from.MoveInDirection(d, n)...)
}

func TestClickPoints(t *testing.T) {
	start := geom.Pt(100, 100)
	tests := []struct {
		name string
		path []geom.PointU16
		want []geom.PointU16
	}{
		{"empty", nil, nil},
		{"on screen", straight(start, geom.East, 5), []geom.PointU16{geom.Pt(290, 600)}},
		{"leaves right edge", straight(start, geom.East, 12), []geom.PointU16{geom.Pt(290, 799), geom.Pt(290, 799), geom.Pt(290, 799)}},
		{"leaves top edge", straight(start, geom.North, 8), []geom.PointU16{geom.Pt(0, 400)}},
		{"just inside top", straight(start, geom.North, 7), []geom.PointU16{geom.Pt(10, 400)}},
		{"leaves bottom edge", straight(start, geom.South, 7), []geom.PointU16{geom.Pt(551, 400)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClickPoints(tt.path))
		})
	}
}

type stillFrames struct {
	n int
}

func (f *stillFrames) Frame(ctx context.Context) (*matrix.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.n++
	return matrix.NewImage(geom.Pt(8, 8)), nil
}

// scriptedMaps replays sprite sets and then repeats the last one.
type scriptedMaps struct {
	frames []mapmatch.Sprites
	i      int
}

func (m *scriptedMaps) Match(*matrix.Matrix) mapmatch.Sprites {
	s := m.frames[min(m.i, len(m.frames)-1)]
	m.i++
	return s
}

func sprites(n int) mapmatch.Sprites {
	s := mapmatch.Sprites{}
	for i := range n {
		s[uint32(i+1)] = []geom.PointU16{geom.Pt(uint16(20+i), uint16(30+i))}
	}
	return s
}

func newTestAgent(t *testing.T, maps *scriptedMaps, opts Options) (*Agent, *input.Recorder) {
	t.Helper()
	masks, err := tilemask.NewIndex(nil)
	require.NoError(t, err)

	var pixels palette.PixelPalette
	rec := input.NewRecorder()
	a := New(opts, Deps{
		Frames:     &stillFrames{},
		Emitter:    rec,
		Contractor: palette.NewContractor(&pixels),
		Maps:       maps,
		Masks:      masks,
		Rand:       rand.New(rand.NewPCG(7, 11)),
	})
	a.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return a, rec
}

func testOptions() Options {
	return Options{
		Planner:      mosaic.DefaultOptions(),
		MaxMovements: 3,
		MaxRefreshes: 2,
		ClickDelay:   time.Second,
		AutomapKey:   "tab",
	}
}

func walked(g *mosaic.Grid) uint32 {
	var n uint32
	for _, t := range g.Tiles {
		n += t.WalkedCount
	}
	return n
}

func TestTick(t *testing.T) {
	a, _ := newTestAgent(t, &scriptedMaps{frames: []mapmatch.Sprites{sprites(3)}}, testOptions())

	p, err := a.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, geom.Pt(8, 8), p.Frame.Dims)
	assert.Equal(t, 3, p.MapSprites.Count())
	assert.Empty(t, p.Monsters)
	assert.Empty(t, p.Items)
}

func TestExplore(t *testing.T) {
	a, rec := newTestAgent(t, &scriptedMaps{frames: []mapmatch.Sprites{sprites(4)}}, testOptions())

	require.NoError(t, a.Explore(context.Background()))
	require.NotNil(t, a.Planner())

	events := rec.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, input.Event{Type: input.EventKeyClick, Key: "tab"}, events[0])

	clicks := rec.Clicks()
	assert.GreaterOrEqual(t, len(clicks), 2)
	assert.LessOrEqual(t, len(clicks), 6)
	for _, c := range clicks {
		assert.Less(t, c.Row, uint16(ScreenRows))
		assert.Less(t, c.Col, uint16(ScreenCols))
	}
	// Frames never moved, so the second round walked back.
	assert.False(t, a.Planner().LastMoveSucceeded())
	assert.Positive(t, walked(a.Planner().Grid()))
}

func TestStepResetsDisconnectedMaps(t *testing.T) {
	maps := &scriptedMaps{frames: []mapmatch.Sprites{sprites(10), sprites(2)}}
	opts := testOptions()
	opts.MaxRefreshes = 1
	a, _ := newTestAgent(t, maps, opts)

	require.NoError(t, a.Explore(context.Background()))

	// Reset discards the walked marks of the planned path.
	assert.Zero(t, walked(a.Planner().Grid()))
	assert.Equal(t, mosaic.ScreenTiles, a.Planner().Grid().Dims)
	assert.Equal(t, mosaic.ScreenCenter, a.Planner().Anchor())
}

func TestStepBeforeExplore(t *testing.T) {
	a, _ := newTestAgent(t, &scriptedMaps{frames: []mapmatch.Sprites{sprites(1)}}, testOptions())
	assert.Error(t, a.Step(context.Background()))
}

func TestWalkCancelled(t *testing.T) {
	a, rec := newTestAgent(t, &scriptedMaps{frames: []mapmatch.Sprites{sprites(1)}}, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.Walk(ctx, []geom.PointU16{geom.Pt(1, 1)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Events())

	require.NoError(t, a.Walk(context.Background(), []geom.PointU16{geom.Pt(1, 1), geom.Pt(2, 2)}))
	assert.Equal(t, []geom.PointU16{geom.Pt(1, 1), geom.Pt(2, 2)}, rec.Clicks())
}

func TestSleepCtx(t *testing.T) {
	require.NoError(t, sleepCtx(context.Background(), time.Microsecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

type fakeReader map[string][]byte

func (f fakeReader) ReadFirst(path string, _ ...string) ([]byte, error) {
	if data, ok := f[path]; ok {
		return data, nil
	}
	return nil, archive.ErrFileNotFound
}

func actPalette() []byte {
	data := make([]byte, 439847+10*palette.Size)
	data[5*4], data[5*4+1], data[5*4+2] = 64, 128, 192
	return data
}

// monsterTables returns minimal Levels, monstats and monstats2 tables with
// one level and one NPC.
func monsterTables() fakeReader {
	row := func(header []string, values map[string]string) string {
		fields := make([]string, len(header))
		for i, h := range header {
			fields[i] = values[h]
		}
		return strings.Join(header, "\t") + "\r\n" + strings.Join(fields, "\t") + "\r\n"
	}

	levels := []string{"Name", "LevelName"}
	for i := 1; i <= formats.LevelMonsterSlots; i++ {
		levels = append(levels, fmt.Sprintf("mon%d", i), fmt.Sprintf("nmon%d", i))
	}
	monstats2 := []string{"Id", "BaseW", "Rav", "Lav"}
	for _, m := range formats.MonsterModes {
		monstats2 = append(monstats2, "m"+m)
	}
	for _, c := range formats.MonsterComposits {
		monstats2 = append(monstats2, c)
		if c != "RA" && c != "LA" {
			monstats2 = append(monstats2, c+"v")
		}
	}

	monstats := []string{"Id", "NameStr", "Code", "TransLvl", "MonStatsEx", "spawn", "minion1", "minion2"}
	return fakeReader{
		archive.LevelsPath: []byte(row(levels, map[string]string{
			"Name": "Act 1 - Wilderness 1", "LevelName": "Blood Moor", "mon1": "zombie1"})),
		archive.MonStatsPath: []byte(row(monstats, map[string]string{
			"Id": "zombie1", "NameStr": "Zombie", "Code": "ZM", "MonStatsEx": "zombie"}) +
			strings.Join([]string{"Warriv1", "Warriv", "WA", "", "warriv"}, "\t") + "\r\n"),
		archive.MonStats2Path: []byte(row(monstats2, map[string]string{
			"Id": "zombie", "BaseW": "HTH", "mNU": "1", "TR": "1", "TRv": "lit"}) +
			"warriv\tHTH\r\n"),
	}
}

func TestLoadAssets(t *testing.T) {
	r := monsterTables()
	r[archive.PalettePath(2)] = actPalette()
	r[archive.RandTransformsPath] = make([]byte, 30*palette.Size)

	cache := window.NewCache(t.TempDir())
	a, err := LoadAssets(r, AssetConfig{
		Act:        2,
		Difficulty: window.Nightmare,
		Roster:     window.Roster{"Den of Evil": {{Name: "Fallen", Code: "FA"}}},
		Cache:      cache,
		Matcher:    window.Options{MaxWindowsPerFrame: 4, MatchUniqueAndChampion: true},
	})
	require.NoError(t, err)

	assert.Equal(t, byte(5), a.Contractor.Contract(palette.Pixel{R: 64, G: 128, B: 192}))
	assert.Len(t, a.Monsters.LightRadius, 14)
	assert.Len(t, a.Monsters.RandTransforms, 30)
	assert.Equal(t, window.Nightmare, a.Difficulty)

	_, err = a.BuildMonsterMatcher("Nowhere")
	assert.ErrorIs(t, err, ErrUnknownArea)
	_, err = a.MonsterMatcher("Nowhere")
	assert.ErrorIs(t, err, ErrUnknownArea)

	// Known names resolve; the archives hold no sprites to index.
	_, err = a.BuildMonsterMatcher("Blood Moor")
	assert.ErrorIs(t, err, window.ErrEmptyBank)
	_, err = a.BuildMonsterMatcher("Den of Evil")
	assert.ErrorIs(t, err, window.ErrEmptyBank)

	_, err = a.MapMatcher("Blood Moor")
	assert.ErrorIs(t, err, archive.ErrFileNotFound)
	_, err = a.TextReader()
	assert.ErrorIs(t, err, archive.ErrFileNotFound)

	p := a.PreCacher(true, 3)
	assert.Same(t, cache, p.Cache)
	assert.Equal(t, 3, p.MaxParallel)
	require.NotNil(t, p.NewBuild)

	_, err = LoadAssets(fakeReader{}, AssetConfig{Act: 1, Cache: cache})
	assert.ErrorIs(t, err, archive.ErrFileNotFound)

	delete(r, archive.MonStatsPath)
	_, err = LoadAssets(r, AssetConfig{Act: 2, Cache: cache})
	assert.ErrorIs(t, err, archive.ErrFileNotFound)
}

func TestMatcherMonsters(t *testing.T) {
	tables, err := window.LoadTables(monsterTables())
	require.NoError(t, err)
	a := &Assets{
		Tables:  tables,
		Roster:  window.Roster{"Blood Moor": {{Name: "Quill Rat", Code: "SI"}}},
		Matcher: window.Options{Kind: window.KindArea, MaxWindowsPerFrame: 100, MatchUniqueAndChampion: true},
	}

	monsters, opts, err := a.matcherMonsters("Blood Moor")
	require.NoError(t, err)
	assert.Equal(t, "SI", monsters[0].Code, "roster entries override the tables")
	assert.Equal(t, a.Matcher, opts)

	a.Roster = nil
	monsters, _, err = a.matcherMonsters("Blood Moor")
	require.NoError(t, err)
	require.Len(t, monsters, 1)
	assert.Equal(t, []string{`data\global\monsters\ZM\TR\ZMTRlitNUHTH.dcc`}, monsters[0].Sprites)

	monsters, opts, err = a.matcherMonsters("warriv1")
	require.NoError(t, err)
	require.Len(t, monsters, 1)
	assert.Equal(t, "WA", monsters[0].Code)
	assert.Equal(t, window.Options{Kind: window.KindMonster, MaxWindowsPerFrame: npcMaxWindowsPerFrame}, opts)
}

func TestPreCacherClonesArchives(t *testing.T) {
	fsys := fstest.MapFS{}
	for path, data := range monsterTables() {
		fsys[strings.ReplaceAll(path, `\`, "/")] = &fstest.MapFile{Data: data}
	}
	data, err := archive.OpenFS(archive.Data, fsys)
	require.NoError(t, err)
	set := archive.NewSet()
	set.Add(data)

	tables, err := window.LoadTables(set)
	require.NoError(t, err)
	a := &Assets{Archives: set, Tables: tables, Cache: window.NewCache(t.TempDir())}

	before := set.CacheStats()
	require.NotZero(t, before.Misses)

	build := a.PreCacher(true, 2).NewBuild()
	_, err = build("Blood Moor")
	assert.ErrorIs(t, err, window.ErrEmptyBank)
	assert.Equal(t, before, set.CacheStats(), "parallel builds read through their own cache")

	_, err = a.BuildMonsterMatcher("Blood Moor")
	assert.ErrorIs(t, err, window.ErrEmptyBank)
	assert.Greater(t, set.CacheStats().Misses, before.Misses)
}
