// SPDX-License-Identifier: MPL-2.0

// distpack packages a project's components into versioned zip archives,
// writes a release manifest, and publishes the artifacts to GitHub
// Releases when a credential is configured.
package main

func main() {
	Execute()
}
