// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SourceDir != "app" {
		t.Errorf("source_dir: got %q, want app", cfg.SourceDir)
	}
	if cfg.DistDir != "dist" {
		t.Errorf("dist_dir: got %q, want dist", cfg.DistDir)
	}
	if cfg.Repo != "" {
		t.Errorf("repo: got %q, want empty", cfg.Repo)
	}
}

func TestLoad_FromWorkDir(t *testing.T) {
	dir := t.TempDir()
	content := "source_dir: packages\ndist_dir: out\nrepo: octocat/hello-world\n"
	if err := os.WriteFile(filepath.Join(dir, "distpack.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(LoadOptions{WorkDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SourceDir != "packages" || cfg.DistDir != "out" {
		t.Errorf("directories: got %q/%q", cfg.SourceDir, cfg.DistDir)
	}
	if cfg.Repo != "octocat/hello-world" {
		t.Errorf("repo: got %q", cfg.Repo)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("dist_dir: artifacts\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DistDir != "artifacts" {
		t.Errorf("dist_dir: got %q", cfg.DistDir)
	}
	// Keys absent from the file keep their defaults.
	if cfg.SourceDir != "app" {
		t.Errorf("source_dir: got %q, want default", cfg.SourceDir)
	}
}

func TestLoad_ExplicitPathMissing(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "absent.yaml")})
	if err == nil {
		t.Fatal("an explicitly requested config file must exist")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("dist_dir: [unterminated\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(LoadOptions{ConfigFilePath: path}); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestLoad_TokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnvVar, "env-secret")

	cfg, err := Load(LoadOptions{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "env-secret" {
		t.Errorf("token: got %q, want env-secret", cfg.Token)
	}
}

func TestLoad_TokenAbsent(t *testing.T) {
	t.Setenv(TokenEnvVar, "")
	os.Unsetenv(TokenEnvVar)

	cfg, err := Load(LoadOptions{WorkDir: t.TempDir()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "" {
		t.Errorf("token: got %q, want empty", cfg.Token)
	}
}
