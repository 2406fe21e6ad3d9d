// SPDX-License-Identifier: MPL-2.0

package release

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"distpack/internal/digest"
	"distpack/internal/manifest"
	"distpack/internal/publish"
)

// projectFixture lays out a project with metadata and component sources.
func projectFixture(t *testing.T, version string, components map[string]map[string]string) Options {
	t.Helper()

	projectDir := t.TempDir()
	srcDir := filepath.Join(projectDir, "app")
	if err := os.WriteFile(filepath.Join(projectDir, "package.json"),
		[]byte(`{"name": "fixture", "version": "`+version+`"}`), 0644); err != nil {
		t.Fatalf("writing metadata: %v", err)
	}

	if err := os.MkdirAll(srcDir, 0755); err != nil {
		t.Fatalf("creating source root: %v", err)
	}
	for name, files := range components {
		for rel, content := range files {
			path := filepath.Join(srcDir, name, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("writing %s: %v", rel, err)
			}
		}
	}

	return Options{
		SourceDir:  srcDir,
		DistDir:    filepath.Join(projectDir, "dist"),
		ProjectDir: projectDir,
		Logger:     log.New(io.Discard),
	}
}

func TestRun_ProducesArtifactsAndManifest(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "1.2.0", map[string]map[string]string{
		"core":     {"index.js": "core code"},
		"plugin-a": {"plugin.js": "plugin code", "nested/data.txt": "data"},
	})
	opts.Now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }

	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Version != "1.2.0" {
		t.Errorf("version: got %q", result.Version)
	}
	wantDir := filepath.Join(opts.DistDir, "1.2.0")
	if result.Dir != wantDir {
		t.Errorf("dir: got %q, want %q", result.Dir, wantDir)
	}

	// Both zips plus the manifest must exist on disk.
	for _, name := range []string{"core.zip", "plugin-a.zip", manifest.FileName} {
		if _, err := os.Stat(filepath.Join(wantDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	// Manifest entries follow enumeration order and record real digests.
	m, err := manifest.Load(filepath.Join(wantDir, manifest.FileName))
	if err != nil {
		t.Fatalf("loading manifest: %v", err)
	}
	if len(m.Files) != 2 || m.Files[0].URL != "core.zip" || m.Files[1].URL != "plugin-a.zip" {
		t.Fatalf("manifest entries: %+v", m.Files)
	}
	if m.ReleaseDate != "2026-08-29T12:00:00Z" {
		t.Errorf("releaseDate: got %q", m.ReleaseDate)
	}
	for _, f := range m.Files {
		if len(f.SHA512) != digest.EncodedLength {
			t.Errorf("%s: sha512 length %d, want %d", f.URL, len(f.SHA512), digest.EncodedLength)
		}
	}

	// The recorded hashes and sizes must match the files on disk.
	if err := m.VerifyDir(wantDir); err != nil {
		t.Errorf("manifest does not match artifacts on disk: %v", err)
	}

	if result.Published {
		t.Error("no publish function configured, result must not claim publication")
	}
}

func TestRun_NoComponents(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "1.0.0", nil)

	_, err := New(opts).Run(context.Background())
	if !errors.Is(err, ErrNoComponents) {
		t.Fatalf("expected ErrNoComponents, got %v", err)
	}

	// The version output directory must not have been created.
	if _, statErr := os.Stat(filepath.Join(opts.DistDir, "1.0.0")); !os.IsNotExist(statErr) {
		t.Error("output directory exists despite failed run")
	}
}

func TestRun_IgnoresLooseFilesInSourceRoot(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "1.0.0", map[string]map[string]string{
		"core": {"a.txt": "x"},
	})
	if err := os.WriteFile(filepath.Join(opts.SourceDir, "stray.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}

	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 1 || result.Files[0].URL != "core.zip" {
		t.Errorf("expected only the core component, got %+v", result.Files)
	}
}

func TestRun_MissingMetadataIsFatal(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "1.0.0", map[string]map[string]string{
		"core": {"a.txt": "x"},
	})
	if err := os.Remove(filepath.Join(opts.ProjectDir, "package.json")); err != nil {
		t.Fatalf("removing metadata: %v", err)
	}

	if _, err := New(opts).Run(context.Background()); err == nil {
		t.Fatal("expected fatal error for missing metadata")
	}
}

func TestRun_InvokesPublishWithAllAssets(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "2.1.0", map[string]map[string]string{
		"core":     {"a.txt": "x"},
		"plugin-a": {"b.txt": "y"},
	})

	var got publish.Request
	opts.Publish = func(_ context.Context, req publish.Request) error {
		got = req
		return nil
	}

	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Published {
		t.Error("expected result to report publication")
	}

	if got.Version != "2.1.0" || got.Dir != result.Dir {
		t.Errorf("publish request: %+v", got)
	}
	want := []string{"core.zip", "plugin-a.zip", manifest.FileName}
	if len(got.AssetNames) != len(want) {
		t.Fatalf("asset names: got %v, want %v", got.AssetNames, want)
	}
	for i := range want {
		if got.AssetNames[i] != want[i] {
			t.Errorf("asset[%d]: got %q, want %q", i, got.AssetNames[i], want[i])
		}
	}
}

func TestRun_PublishFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "1.0.0", map[string]map[string]string{
		"core": {"a.txt": "x"},
	})
	opts.Publish = func(context.Context, publish.Request) error {
		return errors.New("remote outage")
	}

	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("a publish failure must not fail the run: %v", err)
	}
	if result.Published {
		t.Error("result claims publication despite failure")
	}

	// Local artifacts survive the failed publish.
	if _, statErr := os.Stat(filepath.Join(result.Dir, "core.zip")); statErr != nil {
		t.Errorf("artifact missing after failed publish: %v", statErr)
	}
}

func TestRun_SizesMatchDisk(t *testing.T) {
	t.Parallel()

	opts := projectFixture(t, "1.0.0", map[string]map[string]string{
		"core": {"payload.bin": "some artifact payload"},
	})

	result, err := New(opts).Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, f := range result.Files {
		info, statErr := os.Stat(filepath.Join(result.Dir, f.URL))
		if statErr != nil {
			t.Fatalf("stat %s: %v", f.URL, statErr)
		}
		if info.Size() != f.Size {
			t.Errorf("%s: manifest size %d, on-disk size %d", f.URL, f.Size, info.Size())
		}
	}
}
