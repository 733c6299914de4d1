package classfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load reads a single class definition from a JSON file.
func Load(path string) (*ClassFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf ClassFile
	if err := json.Unmarshal(b, &cf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(cf.Name) == "" {
		return nil, fmt.Errorf("parse %s: class name must be non-empty", path)
	}
	return &cf, nil
}

// LoadDir reads every *.json class definition directly under dir, in
// deterministic (sorted) file order, and returns them keyed by class name.
// Duplicate class names across files are an error.
func LoadDir(dir string) (map[string]*ClassFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make(map[string]*ClassFile, len(names))
	for _, n := range names {
		cf, err := Load(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		if _, dup := out[cf.Name]; dup {
			return nil, fmt.Errorf("duplicate class definition for %s in %s", cf.Name, dir)
		}
		out[cf.Name] = cf
	}
	return out, nil
}
