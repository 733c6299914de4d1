// Package store persists the base class definitions the planner CLI diffs
// against between runs. It is a tool-side convenience only: the engine
// itself keeps all registry state in memory and rebuilds it from load
// events, so losing this cache just means re-recording the base.
//
// Conventions:
//   - The cache root defaults to "tmp/.frcache" unless overridden.
//   - A per-source cache lives at: <root>/<pathKey>/base.json
//   - Writes are atomic (temp file in the same directory, then rename).
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/llchen223/fakereplace/internal/classfile"
)

const (
	defaultCacheRoot = "tmp/.frcache"
	baseFileName     = "base.json"
)

// Record is the persisted form of one recorded base: the raw class
// definitions plus the loader identity they were registered under.
type Record struct {
	Loader        string                 `json:"loader"`
	Created       string                 `json:"created"` // ISO-8601, UTC
	FormatVersion string                 `json:"formatVersion,omitempty"`
	Classes       []*classfile.ClassFile `json:"classes"`
}

// NewRecord builds a record from a loaded definition set, classes sorted by
// name for deterministic output.
func NewRecord(loader string, classes map[string]*classfile.ClassFile) *Record {
	names := make([]string, 0, len(classes))
	for n := range classes {
		names = append(names, n)
	}
	sort.Strings(names)
	rec := &Record{
		Loader:        loader,
		Created:       time.Now().UTC().Format(time.RFC3339),
		FormatVersion: "1",
		Classes:       make([]*classfile.ClassFile, 0, len(names)),
	}
	for _, n := range names {
		rec.Classes = append(rec.Classes, classes[n])
	}
	return rec
}

// ByName indexes the record's classes by class name.
func (r *Record) ByName() map[string]*classfile.ClassFile {
	out := make(map[string]*classfile.ClassFile, len(r.Classes))
	for _, c := range r.Classes {
		out[c.Name] = c
	}
	return out
}

// PathKey returns a short, stable identifier for an absolute source path:
// the first 12 hex chars of sha256(absPath).
func PathKey(abs string) string {
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])[:12]
}

// CacheDir resolves the cache directory for the given absolute source path.
// An empty root falls back to the default.
func CacheDir(root, srcAbs string) string {
	if root == "" {
		root = defaultCacheRoot
	}
	return filepath.Join(root, PathKey(srcAbs))
}

// Load reads the record from <dir>/base.json. A missing file returns
// (nil, nil) so callers can treat it as "no recorded base" without
// branching on errors.
func Load(dir string) (*Record, error) {
	b, err := os.ReadFile(filepath.Join(dir, baseFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save writes the record atomically to <dir>/base.json.
func Save(dir string, rec *Record) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".tmp-"+baseFileName+"-")
	if err != nil {
		return err
	}
	tmp := f.Name()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, baseFileName))
}

// Clear removes the cache directory. Safe if it does not exist.
func Clear(dir string) error {
	if dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return os.RemoveAll(dir)
}
