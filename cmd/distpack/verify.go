// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"distpack/internal/config"
	"distpack/internal/manifest"
)

// newVerifyCommand creates the `distpack verify` command, which re-checks
// a packaged release directory against its manifest.
func newVerifyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <version|directory>",
		Short: "Re-check packaged artifacts against their manifest",
		Long: `Recompute the SHA-512 digest and size of every artifact listed in a
release's info.json and compare them against the recorded values.

The argument is either a version (looked up under the dist root) or a
path to a directory containing info.json.`,
		Example: `  distpack verify 1.2.0
  distpack verify dist/1.2.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := config.Load(config.LoadOptions{ConfigFilePath: cfgFile})
			if err != nil {
				return &ExitError{Code: ExitUsage, Err: err}
			}
			if v, _ := cmd.Flags().GetString("dist"); v != "" {
				cfg.DistDir = v
			}

			dir := resolveVerifyDir(cfg.DistDir, args[0])
			if err := runVerify(cmd, dir); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), ErrorStyle.Render("Error: ")+err.Error())
				return &ExitError{Code: ExitFailure, Err: err}
			}
			return nil
		},
	}

	cmd.Flags().String("dist", "", "output root for versioned artifacts (default \"dist\")")

	return cmd
}

// resolveVerifyDir interprets the argument as a directory when one
// exists at that path, and as a version under the dist root otherwise.
func resolveVerifyDir(distDir, arg string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg
	}
	return filepath.Join(distDir, arg)
}

// runVerify loads the manifest in dir and verifies every listed artifact.
func runVerify(cmd *cobra.Command, dir string) error {
	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err != nil {
		return err
	}

	if err := m.VerifyDir(dir); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("✓")+fmt.Sprintf(" %s: %d artifact(s) match the manifest",
		m.Version, len(m.Files)))
	return nil
}
