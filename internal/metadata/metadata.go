// SPDX-License-Identifier: MPL-2.0

// Package metadata resolves the release version from project metadata.
//
// Two metadata sources are recognized, checked in order: package.json
// (the original format this tool packages for) and distpack.toml. Both
// must carry a "version" field holding a valid semantic version. A
// missing or malformed metadata file is a fatal condition for the caller.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/semver"
)

const (
	// JSONFileName is the primary metadata file name.
	JSONFileName = "package.json"
	// TOMLFileName is the alternative metadata file name.
	TOMLFileName = "distpack.toml"
)

// ErrNoMetadata is returned when no recognized metadata file exists.
var ErrNoMetadata = errors.New("no project metadata found")

// Project is the subset of project metadata the packager needs.
type Project struct {
	Name    string `json:"name" toml:"name"`
	Version string `json:"version" toml:"version"`
}

// Tag returns the release tag derived from the project version ("v" prefix).
func (p *Project) Tag() string {
	return "v" + p.Version
}

// Resolve locates the project metadata file in dir and returns the parsed
// project. package.json takes precedence over distpack.toml.
func Resolve(dir string) (*Project, error) {
	for _, name := range []string{JSONFileName, TOMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("checking %s: %w", path, err)
		}
		return ResolveFile(path)
	}
	return nil, fmt.Errorf("%w in %s (expected %s or %s)", ErrNoMetadata, dir, JSONFileName, TOMLFileName)
}

// ResolveFile parses the metadata file at path. The format is chosen by
// file extension: .toml is decoded as TOML, anything else as JSON.
func ResolveFile(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var p Project
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := validate(&p, path); err != nil {
		return nil, err
	}
	return &p, nil
}

// validate checks that the metadata carries a usable semantic version.
func validate(p *Project, path string) error {
	if p.Version == "" {
		return fmt.Errorf("metadata %s has no version field", path)
	}
	if !semver.IsValid("v" + p.Version) {
		return fmt.Errorf("metadata %s has invalid version %q", path, p.Version)
	}
	return nil
}
