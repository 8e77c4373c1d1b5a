package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/snapfeed/internal/config"
)

func newTestCommand(t *testing.T, arguments []string) (*cobra.Command, rootOptions) {
	t.Helper()
	var options rootOptions
	command := &cobra.Command{Use: rootUse}
	registerRootFlags(command, &options)
	if parseError := command.Flags().Parse(arguments); parseError != nil {
		t.Fatalf("parse %v: %v", arguments, parseError)
	}
	return command, options
}

func boolPointer(value bool) *bool { return &value }

func intPointer(value int) *int { return &value }

func TestResolveScanSettingsDefaults(t *testing.T) {
	command, options := newTestCommand(t, nil)

	settings := resolveScanSettings(command, options, config.ApplicationConfiguration{})

	if !settings.useGitignore {
		t.Fatalf("gitignore rules should be enabled by default")
	}
	if settings.followSymlinks {
		t.Fatalf("symlinks should not be followed by default")
	}
	if settings.tokensEnabled {
		t.Fatalf("token estimates should be disabled by default")
	}
	if settings.tokenizerModel != defaultTokenizerModelName {
		t.Fatalf("unexpected default model %q", settings.tokenizerModel)
	}
	if settings.outputPath != "" || settings.copyToClipboard {
		t.Fatalf("default destination should be standard output only")
	}
}

func TestResolveScanSettingsConfigurationApplies(t *testing.T) {
	command, options := newTestCommand(t, nil)

	configuration := config.ApplicationConfiguration{
		Output: config.OutputConfiguration{Destination: "snapshot.md", Clipboard: boolPointer(true)},
		Paths: config.PathConfiguration{
			Exclude:        []string{"vendor"},
			UseGitignore:   boolPointer(false),
			FollowSymlinks: boolPointer(true),
		},
		Scan:   config.ScanConfiguration{Workers: intPointer(3)},
		Tokens: config.TokenConfiguration{Enabled: boolPointer(true), Model: "gpt-4"},
	}
	settings := resolveScanSettings(command, options, configuration)

	if settings.useGitignore {
		t.Fatalf("configuration use_gitignore=false ignored")
	}
	if !settings.followSymlinks {
		t.Fatalf("configuration follow_symlinks=true ignored")
	}
	if settings.workerCount != 3 {
		t.Fatalf("configuration workers ignored: %d", settings.workerCount)
	}
	if !settings.tokensEnabled || settings.tokenizerModel != "gpt-4" {
		t.Fatalf("configuration token settings ignored: %+v", settings)
	}
	if settings.outputPath != "snapshot.md" || !settings.copyToClipboard {
		t.Fatalf("configuration destinations ignored: %+v", settings)
	}
	if !reflect.DeepEqual(settings.exclusionPatterns, []string{"vendor"}) {
		t.Fatalf("configuration exclusions ignored: %v", settings.exclusionPatterns)
	}
}

func TestResolveScanSettingsFlagsOverrideConfiguration(t *testing.T) {
	command, options := newTestCommand(t, []string{
		"--no-gitignore",
		"--workers", "7",
		"--tokens=false",
		"--model", "gpt-3.5-turbo",
		"--out", "flag.md",
		"--copy=false",
		"-e", "dist",
	})

	configuration := config.ApplicationConfiguration{
		Output: config.OutputConfiguration{Destination: "config.md", Clipboard: boolPointer(true)},
		Paths:  config.PathConfiguration{Exclude: []string{"vendor"}, UseGitignore: boolPointer(true)},
		Scan:   config.ScanConfiguration{Workers: intPointer(3)},
		Tokens: config.TokenConfiguration{Enabled: boolPointer(true), Model: "gpt-4"},
	}
	settings := resolveScanSettings(command, options, configuration)

	if settings.useGitignore {
		t.Fatalf("--no-gitignore did not override configuration")
	}
	if settings.workerCount != 7 {
		t.Fatalf("--workers did not override configuration: %d", settings.workerCount)
	}
	if settings.tokensEnabled {
		t.Fatalf("--tokens=false did not override configuration")
	}
	if settings.tokenizerModel != "gpt-3.5-turbo" {
		t.Fatalf("--model did not override configuration: %q", settings.tokenizerModel)
	}
	if settings.outputPath != "flag.md" {
		t.Fatalf("--out did not override configuration: %q", settings.outputPath)
	}
	if settings.copyToClipboard {
		t.Fatalf("--copy=false did not override configuration")
	}
	expectedExclusions := []string{"vendor", "dist"}
	if !reflect.DeepEqual(settings.exclusionPatterns, expectedExclusions) {
		t.Fatalf("unexpected exclusions: %v, expected %v", settings.exclusionPatterns, expectedExclusions)
	}
}

// writeProjectFile creates a file with intermediate directories.
func writeProjectFile(t *testing.T, rootPath, relativePath, content string) {
	t.Helper()
	fullPath := filepath.Join(rootPath, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("create directories for %s: %v", relativePath, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", relativePath, err)
	}
}

func TestRootCommandWritesSnapshotFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	rootPath := t.TempDir()
	writeProjectFile(t, rootPath, "src/main.rs", "fn main() {}")
	writeProjectFile(t, rootPath, "README.md", "# Test")
	writeProjectFile(t, rootPath, "data/logs/error.log", "error!")
	writeProjectFile(t, rootPath, "config.toml", "[config]")
	writeProjectFile(t, rootPath, ".gitignore", "data/\n*.toml")
	outputPath := filepath.Join(t.TempDir(), "snapshot.md")

	command := createRootCommand(zap.NewNop())
	command.SetArgs([]string{rootPath, "--out", outputPath})
	if executeError := command.Execute(); executeError != nil {
		t.Fatalf("Execute error: %v", executeError)
	}

	documentBytes, readError := os.ReadFile(outputPath)
	if readError != nil {
		t.Fatalf("read snapshot: %v", readError)
	}
	document := string(documentBytes)

	expectedTree := ".\n" +
		"├── .gitignore\n" +
		"├── README.md\n" +
		"└── src\n" +
		"    └── main.rs\n"
	if !strings.Contains(document, "# Project Snapshot: "+filepath.Base(rootPath)+"\n") {
		t.Fatalf("missing title line:\n%s", document)
	}
	if !strings.Contains(document, "Total files included: 3\n") {
		t.Fatalf("missing file count:\n%s", document)
	}
	if !strings.Contains(document, expectedTree) {
		t.Fatalf("missing tree diagram:\n%s", document)
	}
	if !strings.Contains(document, "```rs:src/main.rs\nfn main() {}\n```\n\n") {
		t.Fatalf("missing source content block:\n%s", document)
	}
	if strings.Contains(document, "error.log") || strings.Contains(document, "config.toml") {
		t.Fatalf("ignored files leaked into the document:\n%s", document)
	}
}

func TestRootCommandReportsNothingToInclude(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	rootPath := t.TempDir()
	writeProjectFile(t, rootPath, "ignored.txt", "x")
	writeProjectFile(t, rootPath, ".gitignore", "*")
	outputPath := filepath.Join(t.TempDir(), "snapshot.md")

	command := createRootCommand(zap.NewNop())
	command.SetArgs([]string{rootPath, "--out", outputPath})
	if executeError := command.Execute(); executeError != nil {
		t.Fatalf("Execute error: %v", executeError)
	}

	if _, statError := os.Stat(outputPath); !os.IsNotExist(statError) {
		t.Fatalf("no document should be produced for an empty result: %v", statError)
	}
}

func TestRootCommandRejectsMissingRoot(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	command := createRootCommand(zap.NewNop())
	command.SetArgs([]string{filepath.Join(t.TempDir(), "missing")})
	if executeError := command.Execute(); executeError == nil {
		t.Fatalf("expected error for missing root path")
	}
}
