package classfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDef(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "greeter.json", `{"name":"com.acme.Greeter","superName":"java.lang.Object",
		"methods":[{"name":"greet","descriptor":"()Ljava/lang/String;","accessFlags":1}]}`)
	writeDef(t, dir, "other.json", `{"name":"com.acme.Other","superName":"java.lang.Object"}`)
	writeDef(t, dir, "notes.txt", "ignored")

	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	g := defs["com.acme.Greeter"]
	if g == nil || len(g.Methods) != 1 || g.Methods[0].Name != "greet" {
		t.Fatalf("greeter definition not loaded: %#v", g)
	}
}

func TestLoadDirRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "a.json", `{"name":"com.acme.X","superName":"java.lang.Object"}`)
	writeDef(t, dir, "b.json", `{"name":"com.acme.X","superName":"java.lang.Object"}`)
	if _, err := LoadDir(dir); err == nil {
		t.Fatalf("duplicate class names accepted")
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeDef(t, dir, "bad.json", `{"superName":"java.lang.Object"}`)
	if _, err := Load(filepath.Join(dir, "bad.json")); err == nil {
		t.Fatalf("missing class name accepted")
	}
	writeDef(t, dir, "junk.json", `{`)
	if _, err := Load(filepath.Join(dir, "junk.json")); err == nil {
		t.Fatalf("invalid JSON accepted")
	}
}
