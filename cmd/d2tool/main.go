// d2tool is a CLI utility for inspecting game assets and matcher caches.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/d2sight/internal/agent"
	"github.com/Faultbox/d2sight/internal/capture"
	"github.com/Faultbox/d2sight/internal/config"
	"github.com/Faultbox/d2sight/internal/logger"
	"github.com/Faultbox/d2sight/internal/matcher/window"
	"github.com/Faultbox/d2sight/internal/matrix"
	"github.com/Faultbox/d2sight/internal/tilemask"
	"github.com/Faultbox/d2sight/pkg/archive"
	"github.com/Faultbox/d2sight/pkg/formats"
	"github.com/Faultbox/d2sight/pkg/palette"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "dc6":
		cmdDC6(args)
	case "dcc":
		cmdDCC(args)
	case "pl2":
		cmdPL2(args)
	case "monsters":
		cmdMonsters(args)
	case "cache":
		cmdCache(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`d2tool - game asset and matcher cache utility

Usage:
  d2tool <command> [options]

Commands:
  info <game-dir>                          Show extracted archive information
  list <game-dir> [pattern]                List files (optional glob pattern)
  dc6 [-pl2 file -out dir] <file.dc6>      Show DC6 frames, optionally dump them as BMP
  dcc <file.dcc>                           Show DCC directions and frames
  pl2 <file.pl2>                           Show act palette contents
  monsters [-difficulty d] <game-dir> <name>  List the monsters of a level or one monster id
  cache verify <cache-dir> [name...]       Load and check cached matchers
  cache build [-config file] <area...>     Build and store area matchers
  config [path]                            Write the default config (user config dir if no path)

Examples:
  d2tool info ./game
  d2tool list ./game "*.dc6"
  d2tool dc6 -pl2 Pal.PL2 -out frames font16.DC6
  d2tool monsters -difficulty hell ./game "Blood Moor"
  d2tool cache build -config config.yaml "Cold Plains" "Stony Field"`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openArchives(gameDir string) []*archive.Archive {
	var out []*archive.Archive
	for _, name := range archive.Names {
		a, err := archive.Open(name, filepath.Join(gameDir, name))
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	if len(out) == 0 {
		fail("Error: no archives under %s", gameDir)
	}
	return out
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fail("Usage: d2tool info <game-dir>")
	}

	for _, a := range openArchives(args[0]) {
		files := a.List()

		// Count by extension
		extCount := make(map[string]int)
		for _, f := range files {
			ext := strings.ToLower(filepath.Ext(f))
			if ext == "" {
				ext = "(no ext)"
			}
			extCount[ext]++
		}

		fmt.Printf("Archive: %s\n", a.Name())
		fmt.Printf("Files:   %d\n", len(files))
		fmt.Println("Files by type:")

		// Sort by count
		type extStat struct {
			ext   string
			count int
		}
		var stats []extStat
		for ext, count := range extCount {
			stats = append(stats, extStat{ext, count})
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].count != stats[j].count {
				return stats[i].count > stats[j].count
			}
			return stats[i].ext < stats[j].ext
		})

		for _, s := range stats {
			fmt.Printf("  %-10s %d\n", s.ext, s.count)
		}
		fmt.Println()
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: d2tool list <game-dir> [pattern]")
	}

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, a := range openArchives(fs.Arg(0)) {
		files := a.List()
		sort.Strings(files)

		for _, f := range files {
			if pattern != "" {
				base := f[strings.LastIndexAny(f, `\/`)+1:]
				matched, _ := filepath.Match(pattern, strings.ToLower(base))
				if !matched && !strings.Contains(strings.ToLower(f), pattern) {
					continue
				}
			}
			fmt.Printf("%s:%s\n", a.Name(), f)
			count++
			if *limit > 0 && count >= *limit {
				return
			}
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}

func cmdDC6(args []string) {
	fs := flag.NewFlagSet("dc6", flag.ExitOnError)
	pl2Path := fs.String("pl2", "", "Act palette used to render frames")
	outDir := fs.String("out", "", "Directory to write frames to as BMP")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: d2tool dc6 [-pl2 file -out dir] <file.dc6>")
	}
	if (*pl2Path == "") != (*outDir == "") {
		fail("-pl2 and -out go together")
	}

	dc6, err := formats.ParseDC6File(fs.Arg(0))
	if err != nil {
		fail("Error: %v", err)
	}

	var pixels *palette.PixelPalette
	if *pl2Path != "" {
		pl2, err := formats.ParsePL2File(*pl2Path)
		if err != nil {
			fail("Error: %v", err)
		}
		pixels = &pl2.Pixels
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			fail("Error: %v", err)
		}
	}

	fmt.Printf("Directions: %d\n", len(dc6.Directions))
	for d, dir := range dc6.Directions {
		fmt.Printf("Direction %d: %d frames\n", d, len(dir.Frames))
		for f := range dir.Frames {
			frame := &dir.Frames[f]
			fmt.Printf("  frame %3d  %4dx%-4d offset (%d,%d)  %d bytes\n",
				f, frame.Width, frame.Height, frame.OffsetRow, frame.OffsetCol, len(frame.Payload))

			if pixels == nil {
				continue
			}
			m, err := matrix.FromDC6Frame(frame)
			if err != nil {
				fail("Error decoding frame %d/%d: %v", d, f, err)
			}
			if m.Len() == 0 {
				continue
			}
			path := filepath.Join(*outDir, fmt.Sprintf("%02d_%03d.bmp", d, f))
			if err := capture.WriteBMP(path, m.ToImage(pixels).RGBA()); err != nil {
				fail("Error: %v", err)
			}
		}
	}
}

func cmdDCC(args []string) {
	if len(args) < 1 {
		fail("Usage: d2tool dcc <file.dcc>")
	}

	dcc, err := formats.ParseDCCFile(args[0])
	if err != nil {
		fail("Error: %v", err)
	}

	fmt.Printf("Version:    %d\n", dcc.Version)
	fmt.Printf("Directions: %d\n", len(dcc.Directions))
	for d := range dcc.Directions {
		dir := &dcc.Directions[d]
		fmt.Printf("Direction %d: %dx%d, %d frames\n", d, dir.Width(), dir.Height(), len(dir.Frames))
		for f := range dir.Frames {
			m := matrix.FromDCCFrame(dir, f)
			fmt.Printf("  frame %3d  box (%d,%d)-(%d,%d)  %d opaque pixels\n",
				f, dir.Frames[f].Box.RowMin, dir.Frames[f].Box.ColMin,
				dir.Frames[f].Box.RowMax, dir.Frames[f].Box.ColMax, len(m.NonZeroPoints()))
		}
	}
}

func cmdPL2(args []string) {
	if len(args) < 1 {
		fail("Usage: d2tool pl2 <file.pl2>")
	}

	pl2, err := formats.ParsePL2File(args[0])
	if err != nil {
		fail("Error: %v", err)
	}

	distinct := make(map[palette.Pixel]struct{})
	for _, p := range pl2.Pixels {
		distinct[p] = struct{}{}
	}
	fmt.Printf("Pixel palette:   %d distinct colours\n", len(distinct))
	fmt.Printf("Light radius:    %d palettes\n", len(pl2.LightRadius))
	fmt.Println("Font qualities:")
	for _, q := range pl2.FontQualities {
		fmt.Printf("  %-8s neutral=%v\n", q.Quality, q.Palette.IsNeutral())
	}
}

func cmdConfig(args []string) {
	cfg := config.Default()
	if len(args) == 0 {
		if err := cfg.Save(); err != nil {
			fail("Error: %v", err)
		}
		fmt.Printf("Wrote %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
		return
	}
	if err := cfg.SaveTo(args[0]); err != nil {
		fail("Error: %v", err)
	}
	fmt.Printf("Wrote %s\n", args[0])
}

func cmdCache(args []string) {
	if len(args) < 1 {
		fail("Usage: d2tool cache <verify|build> ...")
	}
	switch args[0] {
	case "verify":
		cmdCacheVerify(args[1:])
	case "build":
		cmdCacheBuild(args[1:])
	default:
		fail("Unknown cache command: %s", args[0])
	}
}

func cmdCacheVerify(args []string) {
	if len(args) < 1 {
		fail("Usage: d2tool cache verify <cache-dir> [name...]")
	}

	names := args[1:]
	if len(names) == 0 {
		entries, err := os.ReadDir(args[0])
		if err != nil {
			fail("Error: %v", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}

	cache := window.NewCache(args[0])
	bad := 0
	for _, name := range names {
		t, err := cache.Load(name)
		if err != nil {
			fmt.Printf("%-30s %v\n", name, err)
			bad++
			continue
		}
		fmt.Printf("%-30s ok  %d windows, %d palettes, %d tree bytes\n",
			name, len(t.Bank().Windows), len(t.Bank().Palettes), len(t.Bytes()))
	}
	if bad > 0 {
		os.Exit(1)
	}
}

func cmdCacheBuild(args []string) {
	fs := flag.NewFlagSet("cache build", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Agent config file")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fail("Usage: d2tool cache build [-config file] <area...>")
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fail("Config error: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fail("Logger error: %v", err)
	}
	defer logger.Sync()

	set, err := archive.OpenGameDir(cfg.Game.Dir)
	if err != nil {
		fail("Error: %v", err)
	}
	defer set.Close()

	difficulty, err := window.ParseDifficulty(cfg.Game.Difficulty)
	if err != nil {
		fail("Error: %v", err)
	}
	masks, err := tilemask.Load(cfg.Game.TileMasks)
	if err != nil {
		fail("Error: %v", err)
	}
	var roster window.Roster
	if cfg.Game.Roster != "" {
		if roster, err = window.LoadRoster(cfg.Game.Roster); err != nil {
			fail("Error: %v", err)
		}
	}
	assets, err := agent.LoadAssets(set, agent.AssetConfig{
		Act:        cfg.Game.Act,
		Difficulty: difficulty,
		Masks:      masks,
		Roster:     roster,
		Cache:      window.NewCache(cfg.Matcher.CacheDir),
		Matcher: window.Options{
			Kind:                   window.KindArea,
			MaxWindowsPerFrame:     cfg.Matcher.MaxWindowsPerSpriteFrame,
			MatchUniqueAndChampion: cfg.Matcher.MatchUniqueAndChampionMonsters,
		},
	})
	if err != nil {
		fail("Error: %v", err)
	}

	pc := assets.PreCacher(cfg.PreCache.MultipleThreads, cfg.PreCache.MaxParallel)
	if err := pc.Run(context.Background(), fs.Args()); err != nil {
		fail("Error: %v", err)
	}
	stats := set.CacheStats()
	fmt.Printf("Cached %d areas in %s (archive cache: %d hits, %d misses)\n",
		fs.NArg(), cfg.Matcher.CacheDir, stats.Hits, stats.Misses)
}

func cmdMonsters(args []string) {
	fs := flag.NewFlagSet("monsters", flag.ExitOnError)
	difficultyName := fs.String("difficulty", "normal", "Difficulty (normal, nightmare, hell)")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fail("Usage: d2tool monsters [-difficulty d] <game-dir> <name>")
	}
	difficulty, err := window.ParseDifficulty(*difficultyName)
	if err != nil {
		fail("Error: %v", err)
	}

	set, err := archive.OpenGameDir(fs.Arg(0))
	if err != nil {
		fail("Error: %v", err)
	}
	defer set.Close()

	tables, err := window.LoadTables(set)
	if err != nil {
		fail("Error: %v", err)
	}

	name := fs.Arg(1)
	monsters, err := tables.LevelMonsters(name, difficulty)
	if errors.Is(err, window.ErrUnknownLevel) {
		var m window.Monster
		if m, err = tables.Monster(name); err == nil {
			monsters = []window.Monster{m}
		}
	}
	if err != nil {
		fail("Error: %v", err)
	}

	fmt.Printf("%-24s %-4s %-8s %s\n", "NAME", "CODE", "PALSHIFT", "SPRITES")
	for _, m := range monsters {
		fmt.Printf("%-24s %-4s %-8d %d\n", m.Name, m.Code, m.PalShiftID, len(m.Sprites))
	}
}
