package utils

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion = "unknown"
)

// GetApplicationVersion resolves the version string reported by --version.
// Module build info wins when the binary was installed from a tagged module;
// source builds fall back to describing the surrounding checkout with git.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}

	checkoutPath, checkoutError := locateCheckoutRoot(".")
	if checkoutError == nil && checkoutPath != "" {
		// #nosec G204
		exactTagCommand := exec.Command("git", "describe", "--tags", "--exact-match")
		exactTagCommand.Dir = checkoutPath
		exactTagOutput, exactTagError := exactTagCommand.Output()
		if exactTagError == nil && len(exactTagOutput) > 0 {
			return strings.TrimSpace(string(exactTagOutput))
		}

		// #nosec G204
		describeCommand := exec.Command("git", "describe", "--tags", "--long", "--dirty")
		describeCommand.Dir = checkoutPath
		describeOutput, describeError := describeCommand.Output()
		if describeError == nil && len(describeOutput) > 0 {
			return strings.TrimSpace(string(describeOutput))
		}
	}

	return unknownVersion
}

// locateCheckoutRoot walks upward from startDirectory to the nearest
// directory that contains version-control metadata.
func locateCheckoutRoot(startDirectory string) (string, error) {
	absoluteStartDirectory, absoluteError := filepath.Abs(startDirectory)
	if absoluteError != nil {
		return "", fmt.Errorf("resolving absolute path for %s: %w", startDirectory, absoluteError)
	}

	currentDirectory := absoluteStartDirectory
	for {
		metadataPath := filepath.Join(currentDirectory, GitDirectoryName)
		metadataInfo, statError := os.Stat(metadataPath)
		if statError == nil && metadataInfo.IsDir() {
			return currentDirectory, nil
		}

		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			break
		}
		currentDirectory = parentDirectory
	}

	return "", fmt.Errorf("no version-control metadata in or above %s", absoluteStartDirectory)
}
