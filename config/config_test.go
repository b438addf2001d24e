package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pdffont.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeConfig(t, `
scanner:
  max_string_length: 4096
filters:
  max_decode_time: 5s
verbose: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scanner.MaxStringLength != 4096 {
		t.Errorf("MaxStringLength = %d", cfg.Scanner.MaxStringLength)
	}
	if cfg.Filters.MaxDecodeTime != Duration(5*time.Second) {
		t.Errorf("MaxDecodeTime = %v", cfg.Filters.MaxDecodeTime)
	}
	if !cfg.Verbose {
		t.Errorf("Verbose not set")
	}
	// Untouched keys keep their defaults.
	if want := Default().Scanner.MaxArrayDepth; cfg.Scanner.MaxArrayDepth != want {
		t.Errorf("MaxArrayDepth = %d, want default %d", cfg.Scanner.MaxArrayDepth, want)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("PDFFONT_TEST_LIMIT", "2048")
	path := writeConfig(t, "scanner:\n  max_string_length: ${PDFFONT_TEST_LIMIT}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scanner.MaxStringLength != 2048 {
		t.Errorf("MaxStringLength = %d", cfg.Scanner.MaxStringLength)
	}
}

func TestLoadRejectsNegativeLimits(t *testing.T) {
	path := writeConfig(t, "scanner:\n  max_dict_depth: -1\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a validation error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "scanner: [not a mapping\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}
