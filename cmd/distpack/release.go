// SPDX-License-Identifier: MPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"distpack/internal/config"
	"distpack/internal/gitremote"
	"distpack/internal/metadata"
	"distpack/internal/publish"
	"distpack/internal/release"
)

// releaseParams bundles the dependencies and flags for the release
// command, so the core logic in runRelease can be tested without a real
// Cobra command or live API calls.
type releaseParams struct {
	stdout      io.Writer
	logger      *log.Logger
	cfg         *config.Config
	metadata    string // --metadata override
	repoSpec    string // --repo override ("owner/name")
	skipPublish bool   // --skip-publish: never touch the network
}

// newReleaseCommand creates the `distpack release` command, which runs
// the full packaging pipeline and best-effort publishes the result.
func newReleaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Package every component and publish the release",
		Long: `Package every component directory into a versioned zip archive,
write the release manifest, and upload the artifacts to GitHub Releases.

Publishing requires GITHUB_TOKEN. Without it the command still produces
all local artifacts and exits successfully; publishing failures are
logged and never fail a run whose local artifacts are valid.`,
		Example: `  # Package ./app/* into ./dist/<version>/ and publish
  distpack release

  # Package from a different source tree, local-only
  distpack release --source packages --skip-publish

  # Publish to an explicit repository instead of the git remote
  distpack release --repo octocat/hello-world`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}

			// Flags override file-based configuration.
			if v, _ := cmd.Flags().GetString("source"); v != "" {
				cfg.SourceDir = v
			}
			if v, _ := cmd.Flags().GetString("dist"); v != "" {
				cfg.DistDir = v
			}
			if v, _ := cmd.Flags().GetString("repo"); v != "" {
				cfg.Repo = v
			}
			metadataPath, _ := cmd.Flags().GetString("metadata")
			skipPublish, _ := cmd.Flags().GetBool("skip-publish")

			p := releaseParams{
				stdout:      cmd.OutOrStdout(),
				logger:      newLogger(),
				cfg:         cfg,
				metadata:    metadataPath,
				repoSpec:    cfg.Repo,
				skipPublish: skipPublish,
			}

			if err := runRelease(cmd.Context(), p); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: classifyReleaseExitCode(err), Err: err}
			}
			return nil
		},
	}

	cmd.Flags().String("source", "", "source root containing one directory per component (default \"app\")")
	cmd.Flags().String("dist", "", "output root for versioned artifacts (default \"dist\")")
	cmd.Flags().String("metadata", "", "explicit metadata file (default: package.json or distpack.toml)")
	cmd.Flags().String("repo", "", "publish target as owner/name (default: resolved from the git remote)")
	cmd.Flags().Bool("skip-publish", false, "package locally without any remote calls")

	return cmd
}

// runRelease is the core release logic, separated from Cobra for
// testability.
//
// Flow:
//  1. Build the publish step: skipped outright with --skip-publish,
//     no-op without a credential, otherwise resolve the repository
//     coordinates and upload through the GitHub client.
//  2. Run the packaging pipeline; local failures abort with an error,
//     publish failures are logged inside the runner and swallowed.
//  3. Print a summary of what was produced.
func runRelease(ctx context.Context, p releaseParams) error {
	runner := release.New(release.Options{
		SourceDir:    p.cfg.SourceDir,
		DistDir:      p.cfg.DistDir,
		MetadataPath: p.metadata,
		Publish:      buildPublishFunc(p),
		Logger:       p.logger,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render("✓")+fmt.Sprintf(" released %s: %d artifact(s) in %s",
		result.Version, len(result.Files), result.Dir))
	if !result.Published && !p.skipPublish {
		fmt.Fprintln(p.stdout, SubtitleStyle.Render("  (not published)"))
	}
	return nil
}

// buildPublishFunc assembles the publish step from configuration. The
// returned function resolves repository coordinates lazily, so local-only
// runs never invoke git or the network.
func buildPublishFunc(p releaseParams) release.PublishFunc {
	if p.skipPublish {
		return nil
	}

	return func(ctx context.Context, req publish.Request) error {
		if p.cfg.Token == "" {
			p.logger.Info(config.TokenEnvVar + " not set, skipping publish")
			return nil
		}

		repo, err := resolveRepo(ctx, p.repoSpec)
		if err != nil {
			return fmt.Errorf("resolving repository coordinates: %w", err)
		}

		pub := publish.New(publish.Options{
			Token:  p.cfg.Token,
			Owner:  repo.Owner,
			Repo:   repo.Name,
			Logger: p.logger,
		})
		return pub.Publish(ctx, req)
	}
}

// resolveRepo returns the publish target: an explicit owner/name spec
// when given, otherwise the origin remote of the current repository.
func resolveRepo(ctx context.Context, spec string) (*gitremote.Repo, error) {
	if spec != "" {
		return gitremote.ParseSpec(spec)
	}
	return gitremote.Resolve(ctx, ".")
}

// classifyReleaseExitCode maps pipeline errors to process exit codes.
func classifyReleaseExitCode(err error) int {
	if errors.Is(err, release.ErrNoComponents) || errors.Is(err, metadata.ErrNoMetadata) {
		return ExitUsage
	}
	return ExitFailure
}
