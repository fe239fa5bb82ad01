package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg != Default() {
		t.Errorf("got %+v; want Default()", cfg)
	}
}

func TestLoad_PartialFileOnlyOverridesGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p4z.yaml")
	if err := os.WriteFile(path, []byte("compiler_path: /usr/bin/p4c\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %s", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.CompilerPath != "/usr/bin/p4c" {
		t.Errorf("got CompilerPath %q; want %q", cfg.CompilerPath, "/usr/bin/p4c")
	}
	if cfg.SolverTimeoutMS != Default().SolverTimeoutMS {
		t.Errorf("got SolverTimeoutMS %d; want the default %d unchanged", cfg.SolverTimeoutMS, Default().SolverTimeoutMS)
	}
	if cfg.DumpDir != Default().DumpDir {
		t.Errorf("got DumpDir %q; want the default %q unchanged", cfg.DumpDir, Default().DumpDir)
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected an error loading a nonexistent config file")
	}
}
