package ignore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/temirov/snapfeed/internal/ignore"
)

// writeIgnoreFile writes an ignore file with intermediate directories.
func writeIgnoreFile(t *testing.T, rootPath, relativePath, content string) {
	t.Helper()
	fullPath := filepath.Join(rootPath, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("create directories for %s: %v", relativePath, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", relativePath, err)
	}
}

// newTestResolver isolates the home directory so the developer's global
// gitignore never affects expectations.
func newTestResolver(t *testing.T, rootPath string, options ignore.Options) *ignore.Resolver {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return ignore.NewResolver(rootPath, options, nil)
}

func TestRootChainAppliesRootGitignore(t *testing.T) {
	rootPath := t.TempDir()
	writeIgnoreFile(t, rootPath, ".gitignore", "# build output\nbuild/\n*.bak\n\n/anchored.txt")

	chain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()

	testCases := []struct {
		name        string
		segments    []string
		isDirectory bool
		excluded    bool
	}{
		{name: "directory-only pattern matches directory", segments: []string{"build"}, isDirectory: true, excluded: true},
		{name: "directory-only pattern spares file of same name", segments: []string{"build"}, isDirectory: false, excluded: false},
		{name: "glob matches at depth", segments: []string{"sub", "old.bak"}, isDirectory: false, excluded: true},
		{name: "anchored pattern matches at root", segments: []string{"anchored.txt"}, isDirectory: false, excluded: true},
		{name: "anchored pattern spares nested path", segments: []string{"sub", "anchored.txt"}, isDirectory: false, excluded: false},
		{name: "unrelated file accepted", segments: []string{"main.go"}, isDirectory: false, excluded: false},
		{name: "comment line contributes no rule", segments: []string{"build output"}, isDirectory: false, excluded: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if excluded := chain.Excluded(testCase.segments, testCase.isDirectory); excluded != testCase.excluded {
				t.Fatalf("Excluded(%v, %v) = %v, expected %v", testCase.segments, testCase.isDirectory, excluded, testCase.excluded)
			}
		})
	}
}

func TestChainWithoutAnyRules(t *testing.T) {
	rootPath := t.TempDir()

	chain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()

	if chain.Excluded([]string{"anything.txt"}, false) {
		t.Fatalf("empty rule set excluded a file")
	}
	if !chain.Excluded([]string{".git"}, true) {
		t.Fatalf("empty rule set failed to exclude the metadata directory")
	}
}

func TestGitDirectoryCannotBeNegated(t *testing.T) {
	rootPath := t.TempDir()
	writeIgnoreFile(t, rootPath, ".gitignore", "!.git/")

	chain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()

	if !chain.Excluded([]string{".git"}, true) {
		t.Fatalf("negation re-included the metadata directory")
	}
	if !chain.Excluded([]string{"nested", ".git"}, true) {
		t.Fatalf("negation re-included a nested metadata directory")
	}
}

func TestGitPointerFileIsNotExcluded(t *testing.T) {
	rootPath := t.TempDir()

	chain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()

	if chain.Excluded([]string{".git"}, false) {
		t.Fatalf("regular file named .git was excluded")
	}
	if chain.Excluded([]string{"worktree", ".git"}, false) {
		t.Fatalf("nested regular file named .git was excluded")
	}
	if !chain.Excluded([]string{".git"}, true) {
		t.Fatalf("metadata directory slipped past the exclusion")
	}
}

func TestDescendExtendsChainWithDeeperRules(t *testing.T) {
	rootPath := t.TempDir()
	writeIgnoreFile(t, rootPath, ".gitignore", "*.tmp")
	writeIgnoreFile(t, rootPath, "sub/.gitignore", "!special.tmp")

	rootChain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()
	subChain := rootChain.Descend(filepath.Join(rootPath, "sub"), []string{"sub"})

	if !rootChain.Excluded([]string{"other.tmp"}, false) {
		t.Fatalf("root chain missed *.tmp")
	}
	if subChain.Excluded([]string{"sub", "special.tmp"}, false) {
		t.Fatalf("deeper negation did not override the shallower rule")
	}
	if !subChain.Excluded([]string{"sub", "plain.tmp"}, false) {
		t.Fatalf("deeper chain lost the shallower rule")
	}
}

func TestDescendWithoutIgnoreFileReturnsSameChain(t *testing.T) {
	rootPath := t.TempDir()
	writeIgnoreFile(t, rootPath, ".gitignore", "*.tmp")
	if err := os.MkdirAll(filepath.Join(rootPath, "plain"), 0o755); err != nil {
		t.Fatalf("create directory: %v", err)
	}

	rootChain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()
	childChain := rootChain.Descend(filepath.Join(rootPath, "plain"), []string{"plain"})

	if childChain != rootChain {
		t.Fatalf("descending into a directory without rules built a new chain")
	}
}

func TestRepositoryExcludeFileParticipates(t *testing.T) {
	rootPath := t.TempDir()
	writeIgnoreFile(t, rootPath, ".git/info/exclude", "secret.txt")

	chain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: true}).RootChain()

	if !chain.Excluded([]string{"secret.txt"}, false) {
		t.Fatalf("repository exclude file was not applied")
	}
}

func TestGitignoreDisabled(t *testing.T) {
	rootPath := t.TempDir()
	writeIgnoreFile(t, rootPath, ".gitignore", "*.txt")

	chain := newTestResolver(t, rootPath, ignore.Options{UseGitignore: false}).RootChain()

	if chain.Excluded([]string{"notes.txt"}, false) {
		t.Fatalf("disabled gitignore still excluded a file")
	}
	if !chain.Excluded([]string{".git"}, true) {
		t.Fatalf("disabled gitignore dropped the metadata exclusion")
	}
}

func TestExclusionOverridePatterns(t *testing.T) {
	rootPath := t.TempDir()

	chain := newTestResolver(t, rootPath, ignore.Options{
		UseGitignore:      true,
		ExclusionPatterns: []string{"vendor", "docs/**", "[", "  "},
	}).RootChain()

	testCases := []struct {
		name        string
		segments    []string
		isDirectory bool
		excluded    bool
	}{
		{name: "bare name matches directory at any depth", segments: []string{"third_party", "vendor"}, isDirectory: true, excluded: true},
		{name: "bare name matches at root", segments: []string{"vendor"}, isDirectory: true, excluded: true},
		{name: "doublestar matches nested file", segments: []string{"docs", "api", "index.md"}, isDirectory: false, excluded: true},
		{name: "invalid pattern is dropped", segments: []string{"["}, isDirectory: false, excluded: false},
		{name: "unrelated path accepted", segments: []string{"cmd", "main.go"}, isDirectory: false, excluded: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if excluded := chain.Excluded(testCase.segments, testCase.isDirectory); excluded != testCase.excluded {
				t.Fatalf("Excluded(%v, %v) = %v, expected %v", testCase.segments, testCase.isDirectory, excluded, testCase.excluded)
			}
		})
	}
}
