// SPDX-License-Identifier: MPL-2.0

// Package gitremote resolves the GitHub repository coordinates a release
// should be published to from the local git remote configuration.
package gitremote

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// ErrNotGitHub is returned when the origin remote does not point at GitHub.
var ErrNotGitHub = errors.New("remote is not a GitHub repository")

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// String returns the "owner/name" form.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// remoteURLPatterns match the three URL shapes git commonly stores for a
// GitHub remote: scp-like SSH, explicit ssh://, and https://.
var remoteURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^git@github\.com:([^/]+)/(.+?)(?:\.git)?$`),
	regexp.MustCompile(`^ssh://git@github\.com/([^/]+)/(.+?)(?:\.git)?/?$`),
	regexp.MustCompile(`^https?://github\.com/([^/]+)/(.+?)(?:\.git)?/?$`),
}

// Resolve reads the origin remote URL of the repository at dir and parses
// it into GitHub coordinates. It fails when dir is not a git repository,
// has no origin remote, or the remote points somewhere other than GitHub.
func Resolve(ctx context.Context, dir string) (*Repo, error) {
	cmd := exec.CommandContext(ctx, "git", "config", "--get", "remote.origin.url")
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("reading remote.origin.url: %w", err)
	}

	return Parse(strings.TrimSpace(string(out)))
}

// Parse extracts GitHub coordinates from a git remote URL.
func Parse(remoteURL string) (*Repo, error) {
	if remoteURL == "" {
		return nil, fmt.Errorf("empty remote URL: %w", ErrNotGitHub)
	}

	for _, pattern := range remoteURLPatterns {
		m := pattern.FindStringSubmatch(remoteURL)
		if m == nil {
			continue
		}
		return &Repo{Owner: m[1], Name: m[2]}, nil
	}

	return nil, fmt.Errorf("remote %q: %w", remoteURL, ErrNotGitHub)
}

// ParseSpec parses an explicit "owner/name" override (e.g. a --repo flag).
func ParseSpec(spec string) (*Repo, error) {
	owner, name, ok := strings.Cut(spec, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("repository %q is not in owner/name form", spec)
	}
	return &Repo{Owner: owner, Name: name}, nil
}
