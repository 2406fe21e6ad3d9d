// SPDX-License-Identifier: MPL-2.0

// Package release sequences a packaging run: resolve the version, zip
// each component directory, record digests, write the manifest, and hand
// the results to the publisher.
//
// The run is strictly sequential. Each archive is completed and hashed
// before the next component starts; there is no parallel compression or
// upload. Local packaging errors abort the run; publishing is best-effort
// and never invalidates artifacts that were already written.
package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"distpack/internal/archive"
	"distpack/internal/digest"
	"distpack/internal/manifest"
	"distpack/internal/metadata"
	"distpack/internal/publish"
)

// ErrNoComponents is returned when the source root has no subdirectories.
var ErrNoComponents = errors.New("no component directories to release")

type (
	// PublishFunc pushes a finished release to the remote platform.
	// Implementations resolve repository coordinates and credentials on
	// their own; a nil PublishFunc disables publishing.
	PublishFunc func(ctx context.Context, req publish.Request) error

	// Options configures a packaging run.
	Options struct {
		// SourceDir is the root whose immediate subdirectories become
		// release components.
		SourceDir string
		// DistDir is the output root; this run writes into DistDir/<version>/.
		DistDir string
		// ProjectDir is where project metadata is looked up. Empty means
		// the current directory.
		ProjectDir string
		// MetadataPath forces a specific metadata file instead of
		// searching ProjectDir.
		MetadataPath string
		// Publish pushes the finished release. Nil skips publishing.
		Publish PublishFunc
		// Logger receives progress output. Nil uses the package default.
		Logger *log.Logger
		// Now supplies the manifest timestamp. Nil uses time.Now.
		Now func() time.Time
	}

	// Runner executes packaging runs.
	Runner struct {
		opts   Options
		logger *log.Logger
		now    func() time.Time
	}

	// Result describes what a completed run produced locally.
	Result struct {
		// Version is the released semantic version.
		Version string
		// Dir is the version output directory holding all artifacts.
		Dir string
		// Files are the manifest entries, in component-enumeration order.
		Files []manifest.File
		// Published reports whether the publish step returned without
		// error; false when publishing was disabled or failed.
		Published bool
	}
)

// New creates a Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{opts: opts, logger: logger, now: now}
}

// Run executes one packaging run. Any error it returns means no valid
// release was produced; a nil error guarantees every manifest entry
// matches a zip file on disk whose digest was computed after the archive
// stream was closed.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	project, err := r.resolveProject()
	if err != nil {
		return nil, err
	}
	r.logger.Info("packaging release", "version", project.Version)

	components, err := listComponents(r.opts.SourceDir)
	if err != nil {
		return nil, err
	}

	outDir := filepath.Join(r.opts.DistDir, project.Version)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	files := make([]manifest.File, 0, len(components))
	for _, name := range components {
		zipName := name + ".zip"
		zipPath := filepath.Join(outDir, zipName)

		if err := archive.Create(filepath.Join(r.opts.SourceDir, name), zipPath); err != nil {
			return nil, err
		}

		d, err := digest.File(zipPath)
		if err != nil {
			return nil, err
		}

		files = append(files, manifest.File{URL: zipName, SHA512: d.SHA512, Size: d.Size})
		r.logger.Info("packaged component", "component", name, "size", d.Size)
	}

	m := manifest.Build(project.Version, files, r.now())
	if err := m.Write(filepath.Join(outDir, manifest.FileName)); err != nil {
		return nil, err
	}

	result := &Result{Version: project.Version, Dir: outDir, Files: files}
	result.Published = r.runPublish(ctx, result)
	return result, nil
}

// resolveProject loads project metadata from the explicit path or the
// project directory.
func (r *Runner) resolveProject() (*metadata.Project, error) {
	if r.opts.MetadataPath != "" {
		return metadata.ResolveFile(r.opts.MetadataPath)
	}

	dir := r.opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	return metadata.Resolve(dir)
}

// listComponents returns the immediate subdirectory names of sourceDir,
// in directory-enumeration (lexical) order. Zero subdirectories is a
// usage error: there is nothing to release.
func listComponents(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("reading source root: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w (source root %s)", ErrNoComponents, sourceDir)
	}
	return names, nil
}

// runPublish hands the run to the publish function. Failures are logged and
// swallowed: the local artifacts are already valid, and a remote outage
// must not discard a successful build.
func (r *Runner) runPublish(ctx context.Context, result *Result) bool {
	if r.opts.Publish == nil {
		return false
	}

	assetNames := make([]string, 0, len(result.Files)+1)
	for _, f := range result.Files {
		assetNames = append(assetNames, f.URL)
	}
	assetNames = append(assetNames, manifest.FileName)

	err := r.opts.Publish(ctx, publish.Request{
		Version:    result.Version,
		Dir:        result.Dir,
		AssetNames: assetNames,
	})
	if err == nil {
		return true
	}

	if publish.IsAuthError(err) {
		r.logger.Error("publish failed: authentication rejected; check "+
			"that GITHUB_TOKEN is valid and has repo access", "err", err)
	} else {
		r.logger.Error("publish failed; local artifacts remain valid", "err", err)
	}
	return false
}
