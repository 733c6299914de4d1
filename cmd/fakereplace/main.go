// Package main provides the fakereplace planner CLI. It records a base set
// of class definitions, diffs a changed set against that base, validates the
// batch and applies it to an in-process version registry, printing the
// resulting replacement plan.
//
// Modes:
//   - RECORD : fakereplace -record <defs_dir>           remember <defs_dir> as the base
//   - APPLY  : fakereplace <defs_dir>                   diff vs recorded base, commit, print plan
//   - DRY    : fakereplace -dry-run <defs_dir>          validate and print plan only
//   - WATCH  : fakereplace -watch <defs_dir>            re-apply whenever definitions change
//
// A class definition is one JSON file per class (name, superclass, access
// flags, fields, methods). The base may also be given explicitly with
// -base <dir> instead of the recorded cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/llchen223/fakereplace/internal/classfile"
	"github.com/llchen223/fakereplace/internal/config"
	"github.com/llchen223/fakereplace/internal/data"
	"github.com/llchen223/fakereplace/internal/registry"
	"github.com/llchen223/fakereplace/internal/replace"
	"github.com/llchen223/fakereplace/internal/report"
	"github.com/llchen223/fakereplace/internal/store"
	"github.com/llchen223/fakereplace/internal/validate"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  RECORD : %s -record <defs_dir>\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(os.Stderr, "  APPLY  : %s [-base <dir>] [-dry-run] [-watch] <defs_dir>\n", filepath.Base(os.Args[0]))
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	recordFlag := flag.Bool("record", false, "record <defs_dir> as the base definition set")
	baseFlag := flag.String("base", "", "explicit base definitions dir (instead of the recorded cache)")
	dryRunFlag := flag.Bool("dry-run", false, "validate and print the plan without publishing")
	watchFlag := flag.Bool("watch", false, "watch <defs_dir> and re-apply on changes")
	configFlag := flag.String("config", "fakereplace.yaml", "config file path")
	cacheFlag := flag.String("cache-dir", "", "override cache dir from config")
	verboseFlag := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	defsDir := flag.Arg(0)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fail("load config: %v", err)
	}
	if *cacheFlag != "" {
		cfg.CacheDir = *cacheFlag
	}
	level := cfg.Level()
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	absDefs, err := filepath.Abs(defsDir)
	if err != nil {
		fail("resolve %s: %v", defsDir, err)
	}
	cacheDir := store.CacheDir(cfg.CacheDir, absDefs)

	if *recordFlag {
		if err := recordBase(defsDir, cacheDir, cfg); err != nil {
			fail("record base: %v", err)
		}
		log.Info("base recorded", "dir", defsDir, "cache", cacheDir)
		return
	}

	baseDefs, err := loadBase(*baseFlag, cacheDir)
	if err != nil {
		fail("load base: %v", err)
	}

	reg := registry.New()
	snapshots, err := registerBases(reg, baseDefs, cfg)
	if err != nil {
		fail("register base classes: %v", err)
	}

	run := func() {
		if err := apply(reg, snapshots, defsDir, *dryRunFlag, cfg, log); err != nil {
			log.Error("apply failed", "error", err)
			if !*watchFlag {
				os.Exit(1)
			}
		}
	}
	run()

	if *watchFlag {
		if err := watch(defsDir, cfg.WatchDebounce(), log, run); err != nil {
			fail("watch: %v", err)
		}
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fakereplace: "+format+"\n", args...)
	os.Exit(1)
}

// recordBase validates and persists the definition set as the base.
func recordBase(defsDir, cacheDir string, cfg config.Config) error {
	defs, err := classfile.LoadDir(defsDir)
	if err != nil {
		return err
	}
	for _, cf := range defs {
		if err := validate.ClassFile(cf); err != nil {
			return fmt.Errorf("%s: %w", cf.Name, err)
		}
	}
	return store.Save(cacheDir, store.NewRecord(cfg.Loader, defs))
}

// loadBase prefers the explicit -base dir, then the recorded cache.
func loadBase(baseDir, cacheDir string) (map[string]*classfile.ClassFile, error) {
	if baseDir != "" {
		return classfile.LoadDir(baseDir)
	}
	rec, err := store.Load(cacheDir)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("no recorded base; run with -record first or pass -base")
	}
	return rec.ByName(), nil
}

func registerBases(reg *registry.Registry, defs map[string]*classfile.ClassFile, cfg config.Config) (map[string]*data.BaseClassSnapshot, error) {
	out := make(map[string]*data.BaseClassSnapshot, len(defs))
	for name, cf := range defs {
		if err := validate.ClassFile(cf); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		snap, err := data.NewBaseClassSnapshot(cf, cfg.Loader, cfg.IsReplaceable(name))
		if err != nil {
			return nil, err
		}
		if err := reg.Register(snap); err != nil {
			return nil, err
		}
		out[name] = snap
	}
	return out, nil
}

// apply diffs the current definitions against the base snapshots and either
// prints the plan (dry run) or commits the batch and prints what was
// published.
func apply(reg *registry.Registry, snapshots map[string]*data.BaseClassSnapshot,
	defsDir string, dryRun bool, cfg config.Config, log *slog.Logger) error {

	current, err := classfile.LoadDir(defsDir)
	if err != nil {
		return err
	}
	pairs, missing := matchPairs(snapshots, current)
	for _, name := range missing {
		log.Warn("class absent from current definitions; classes cannot be unloaded", "class", name)
	}

	txn := replace.NewTransaction(reg, replace.WithLogger(log))
	queued := 0
	for _, p := range pairs {
		base := snapshots[p]
		if !base.Replaceable() {
			log.Debug("skipping non-replaceable class", "class", p)
			continue
		}
		if err := txn.Queue(base, current[p]); err != nil {
			return err
		}
		queued++
	}
	if queued == 0 {
		log.Info("nothing to redefine")
		return nil
	}

	if dryRun {
		versions, err := txn.Validate()
		if err != nil {
			return err
		}
		fmt.Print(report.Plan(versions))
		return nil
	}

	versions, err := txn.Commit(context.Background())
	if err != nil {
		return err
	}
	fmt.Print(report.Plan(versions))
	return nil
}

// matchPairs pairs base snapshots with current definitions by class name.
// Returns the matched class names sorted, plus base classes missing from the
// current set.
func matchPairs(snapshots map[string]*data.BaseClassSnapshot, current map[string]*classfile.ClassFile) (pairs, missing []string) {
	for name := range snapshots {
		if _, ok := current[name]; ok {
			pairs = append(pairs, name)
		} else {
			missing = append(missing, name)
		}
	}
	sort.Strings(pairs)
	sort.Strings(missing)
	return pairs, missing
}

// watch re-runs fn whenever a definition file changes, batching rapid event
// bursts with a debounce timer.
func watch(dir string, debounce time.Duration, log *slog.Logger, fn func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Info("watching for definition changes", "dir", dir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			log.Debug("definition change", "file", ev.Name, "op", ev.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		case <-fire:
			fn()
		}
	}
}
