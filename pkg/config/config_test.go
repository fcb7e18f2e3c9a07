package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.YaraRuleDir != defaultYaraRuleDir {
		t.Errorf("expected default rule dir, got %s", cfg.YaraRuleDir)
	}
	if cfg.Workers != (WorkersConfig{Processors: 1, Feeders: 1, Loaders: 1}) {
		t.Errorf("expected 1/1/1 default workers, got %+v", cfg.Workers)
	}
	if cfg.Database.Host != defaultDBHost || cfg.Database.Port != defaultDBPort {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Redis.Host != defaultRedisHost || cfg.Redis.Port != defaultRedisPort {
		t.Errorf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if cfg.ScanTimeout != defaultScanTimeout {
		t.Errorf("expected default scan timeout, got %v", cfg.ScanTimeout)
	}
}

func TestLoad_WorkersAuto(t *testing.T) {
	path := writeConfig(t, "workers: auto\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	n := runtime.NumCPU()
	want := autoWorkers(n)
	if cfg.Workers != want {
		t.Errorf("expected %+v for NumCPU=%d, got %+v", want, n, cfg.Workers)
	}
}

func TestAutoWorkers_EightCPUs(t *testing.T) {
	got := autoWorkers(8)
	want := WorkersConfig{Processors: 4, Feeders: 2, Loaders: 2}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestAutoWorkers_OneCPU(t *testing.T) {
	got := autoWorkers(1)
	want := WorkersConfig{Processors: 1, Feeders: 1, Loaders: 1}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestLoad_WorkersExplicitObject(t *testing.T) {
	path := writeConfig(t, "workers:\n  processors: 3\n  feeders: 2\n  loaders: 1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := WorkersConfig{Processors: 3, Feeders: 2, Loaders: 1}
	if cfg.Workers != want {
		t.Errorf("expected %+v, got %+v", want, cfg.Workers)
	}
}

func TestLoad_WorkersBadScalar(t *testing.T) {
	path := writeConfig(t, "workers: fast\n")

	if _, err := Load(path); err != ErrBadWorkersKeyValue {
		t.Errorf("expected ErrBadWorkersKeyValue, got %v", err)
	}
}

func TestLoad_WorkersExplicitZeroRejected(t *testing.T) {
	path := writeConfig(t, "workers:\n  processors: 0\n  feeders: 2\n  loaders: 1\n")

	if _, err := Load(path); err != ErrNegativeWorkers {
		t.Errorf("expected ErrNegativeWorkers for explicit processors: 0, got %v", err)
	}
}

func TestLoad_WorkersExplicitNegativeRejected(t *testing.T) {
	path := writeConfig(t, "workers:\n  processors: 1\n  feeders: -1\n  loaders: 1\n")

	if _, err := Load(path); err != ErrNegativeWorkers {
		t.Errorf("expected ErrNegativeWorkers for negative feeders, got %v", err)
	}
}

func TestLoad_WorkersPartialObjectDefaultsOmittedKeys(t *testing.T) {
	path := writeConfig(t, "workers:\n  processors: 3\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := WorkersConfig{Processors: 3, Feeders: 1, Loaders: 1}
	if cfg.Workers != want {
		t.Errorf("expected %+v, got %+v", want, cfg.Workers)
	}
}

func TestLoad_DatabasePasswdFromEnv(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv(postgresPasswdEnvar, "s3cr3t")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Passwd != "s3cr3t" {
		t.Errorf("expected env-sourced password, got %q", cfg.Database.Passwd)
	}
}

func TestLoad_DatabasePasswdExplicitWins(t *testing.T) {
	path := writeConfig(t, "database:\n  passwd: configured\n")
	t.Setenv(postgresPasswdEnvar, "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Passwd != "configured" {
		t.Errorf("expected configured password to win, got %q", cfg.Database.Passwd)
	}
}

func TestLoad_ScanTimeoutOverride(t *testing.T) {
	path := writeConfig(t, "scan_timeout: 30s\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ScanTimeout != 30*time.Second {
		t.Errorf("expected 30s scan timeout, got %v", cfg.ScanTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
