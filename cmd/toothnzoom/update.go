package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/blang/semver"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

// Version is the current release, overridden at build time via
// -ldflags "-X main.Version=...".
var Version = "0.9.0"

const releaseRepo = "unioslo-odont/toothnzoom-edu"

// checkForUpdates looks up the newest GitHub release and, after confirmation,
// replaces the running binary in place.
func checkForUpdates(prompt func(string) (string, error)) error {
	current, err := semver.ParseTolerant(Version)
	if err != nil {
		return fmt.Errorf("could not parse current version %q: %w", Version, err)
	}
	fmt.Printf("Current version: %s\n", current)

	latest, found, err := selfupdate.DetectLatest(releaseRepo)
	if err != nil {
		return fmt.Errorf("update check failed: %w", err)
	}
	if !found {
		fmt.Printf("No releases found for %s.\n", releaseRepo)
		return nil
	}
	fmt.Printf("Latest version: %s\n", latest.Version)

	if latest.Version.LTE(current) {
		fmt.Println("You are already running the latest version.")
		return nil
	}
	if latest.AssetURL == "" {
		fmt.Println("A new version is available but has no downloadable asset.")
		fmt.Println("Please visit the project releases page to download it.")
		return nil
	}

	answer, err := prompt(fmt.Sprintf("A new version (%s) is available. Update now? (y/N): ", latest.Version))
	if err != nil {
		return fmt.Errorf("failed reading input: %w", err)
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		fmt.Println("Update cancelled.")
		return nil
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("could not locate executable: %w", err)
	}
	if err := selfupdate.UpdateTo(latest.AssetURL, exe); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	fmt.Printf("Updated to %s. Restart toothnzoom to use the new version.\n", latest.Version)
	return nil
}
