package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDotEnv(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	return path
}

func TestLoadDotEnv_LoadsValuesAndIgnoresNoise(t *testing.T) {
	t.Setenv("DB_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")

	path := writeDotEnv(t, `
# comment

DB_PATH=/var/lib/pagen/profiles.db
export PORT=9090
LOG_LEVEL="debug"
`)

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("DB_PATH"); got != "/var/lib/pagen/profiles.db" {
		t.Fatalf("DB_PATH=%q, want %q", got, "/var/lib/pagen/profiles.db")
	}
	if got := os.Getenv("PORT"); got != "9090" {
		t.Fatalf("PORT=%q, want %q", got, "9090")
	}
	if got := os.Getenv("LOG_LEVEL"); got != "debug" {
		t.Fatalf("LOG_LEVEL=%q, want %q", got, "debug")
	}
}

func TestLoadDotEnv_DoesNotOverwriteExistingEnv(t *testing.T) {
	t.Setenv("PORT", "already")

	path := writeDotEnv(t, "PORT=fromfile\n")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("PORT"); got != "already" {
		t.Fatalf("PORT=%q, want %q", got, "already")
	}
}

func TestLoadDotEnv_QuotesAndTrailingComments(t *testing.T) {
	t.Setenv("PAGEN_SETTINGS", "")
	t.Setenv("Q", "")

	path := writeDotEnv(t, "PAGEN_SETTINGS=./printer.yaml # my printer\nQ='hello # world'\n")
	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}

	if got := os.Getenv("PAGEN_SETTINGS"); got != "./printer.yaml" {
		t.Fatalf("PAGEN_SETTINGS=%q, want %q", got, "./printer.yaml")
	}
	if got := os.Getenv("Q"); got != "hello # world" {
		t.Fatalf("Q=%q, want %q", got, "hello # world")
	}
}

func TestLoadDotEnv_MalformedLine(t *testing.T) {
	path := writeDotEnv(t, "JUSTAKEY\n")
	if err := loadDotEnv(path); err == nil {
		t.Fatal("expected an error for a line without '='")
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("loadDotEnv on missing file: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("DB_PATH", "")
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PAGEN_SETTINGS", "")

	cfg := Load()

	if cfg.DBPath != defaultDBPath {
		t.Fatalf("DBPath=%q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.Addr() != ":8080" {
		t.Fatalf("Addr()=%q, want %q", cfg.Addr(), ":8080")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel=%q, want %q", cfg.LogLevel, "info")
	}
}

func TestConfig_AddrKeepsHost(t *testing.T) {
	cfg := Config{Port: "127.0.0.1:9000"}
	if got := cfg.Addr(); got != "127.0.0.1:9000" {
		t.Fatalf("Addr()=%q, want %q", got, "127.0.0.1:9000")
	}
}
