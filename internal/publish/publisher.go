// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

type (
	// Options is the explicit configuration for a Publisher. Credential
	// and repository coordinates are injected here rather than read from
	// the environment ad hoc, so tests can supply fakes.
	Options struct {
		// Token is the API credential. Empty disables publishing: Publish
		// becomes a no-op and performs no network calls.
		Token string
		// Owner and Repo are the target repository coordinates.
		Owner string
		Repo  string
		// Logger receives progress and skip diagnostics. Nil uses the
		// package default logger.
		Logger *log.Logger
		// ClientOptions are appended to the constructed API client,
		// primarily so tests can point it at a local server.
		ClientOptions []ClientOption
	}

	// Publisher idempotently ensures a tagged release exists and uploads
	// artifacts to it.
	Publisher struct {
		client  *Client
		enabled bool
		logger  *log.Logger
	}

	// Request describes one publishing run.
	Request struct {
		// Version is the bare semantic version; the release tag is "v"+Version.
		Version string
		// Dir is the local directory holding the assets.
		Dir string
		// AssetNames are the file names to upload, in order. Names whose
		// files are missing from Dir are logged and skipped.
		AssetNames []string
	}
)

// New builds a Publisher from explicit options.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	clientOpts := append([]ClientOption{WithToken(opts.Token)}, opts.ClientOptions...)

	return &Publisher{
		client:  NewClient(opts.Owner, opts.Repo, clientOpts...),
		enabled: opts.Token != "",
		logger:  logger,
	}
}

// Publish ensures the release record for the request's version exists
// (creating a draft when absent) and uploads each asset present on disk.
// With no credential configured it logs and returns nil without touching
// the network. Errors are returned for the caller to treat as
// best-effort; local artifacts are already valid by the time this runs.
func (p *Publisher) Publish(ctx context.Context, req Request) error {
	if !p.enabled {
		p.logger.Info("no credential configured, skipping publish")
		return nil
	}

	tag := "v" + req.Version
	rel, err := p.client.EnsureRelease(ctx, tag, tag)
	if err != nil {
		return fmt.Errorf("ensuring release %s: %w", tag, err)
	}
	p.logger.Info("publishing release", "tag", tag, "draft", rel.Draft)

	for _, name := range req.AssetNames {
		path := filepath.Join(req.Dir, name)
		if _, statErr := os.Stat(path); statErr != nil {
			if os.IsNotExist(statErr) {
				p.logger.Warn("asset missing on disk, skipping upload", "asset", name)
				continue
			}
			return fmt.Errorf("checking asset %s: %w", name, statErr)
		}

		if _, err := p.client.UploadAsset(ctx, rel, name, path); err != nil {
			return fmt.Errorf("uploading %s: %w", name, err)
		}
		p.logger.Info("uploaded asset", "asset", name)
	}

	return nil
}
