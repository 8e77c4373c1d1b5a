// Package ignore resolves the layered ignore rules that govern which
// filesystem entries a scan accepts. Rules follow gitignore semantics and are
// sourced, in increasing precedence, from the user-global ignore file, the
// repository exclude file, the root .gitignore, and .gitignore files in nested
// directories. The version-control metadata directory is always excluded and
// no rule can re-include it.
package ignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"go.uber.org/zap"

	"github.com/temirov/snapfeed/internal/utils"
)

const (
	// commentPrefix marks comment lines inside ignore files.
	commentPrefix = "#"

	// warningUnreadableLayerFormat reports an ignore layer that contributes no rules.
	warningUnreadableLayerFormat = "unable to read %s, layer contributes no rules: %v"
	// warningInvalidExclusionFormat reports a dropped exclusion override pattern.
	warningInvalidExclusionFormat = "ignoring invalid exclusion pattern %q: %v"
)

// Options configure rule resolution for a scan root.
type Options struct {
	// UseGitignore controls whether .gitignore files, the repository exclude
	// file, and the user-global ignore file participate in filtering.
	UseGitignore bool
	// ExclusionPatterns holds explicit override globs that exclude matching
	// paths regardless of ignore-file contents.
	ExclusionPatterns []string
}

// Resolver produces the rule chain consulted for every traversal decision.
// A Resolver is constructed once per scan and is read-only afterwards.
type Resolver struct {
	rootPath          string
	useGitignore      bool
	basePatterns      []gitignore.Pattern
	exclusionPatterns []string
	logger            *zap.Logger
}

// NewResolver constructs a Resolver for the given absolute root path.
// Unreadable or missing ignore layers degrade to empty layers; invalid
// exclusion override patterns are dropped with a warning. The resolver never
// requires the root to be a version-controlled repository.
func NewResolver(rootPath string, options Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	resolver := &Resolver{
		rootPath:     rootPath,
		useGitignore: options.UseGitignore,
		logger:       logger,
	}

	if options.UseGitignore {
		resolver.basePatterns = append(resolver.basePatterns, resolver.loadGlobalPatterns()...)
		resolver.basePatterns = append(resolver.basePatterns, resolver.loadRepositoryExcludePatterns()...)
	}

	for _, pattern := range utils.DeduplicatePatterns(options.ExclusionPatterns) {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == utils.EmptyString {
			continue
		}
		if !doublestar.ValidatePattern(trimmedPattern) {
			logger.Warn(fmt.Sprintf(warningInvalidExclusionFormat, trimmedPattern, doublestar.ErrBadPattern))
			continue
		}
		resolver.exclusionPatterns = append(resolver.exclusionPatterns, trimmedPattern)
	}

	return resolver
}

// RootChain returns the rule chain in effect at the scan root, combining the
// base layers with the root directory's own .gitignore.
func (resolver *Resolver) RootChain() *Chain {
	patterns := make([]gitignore.Pattern, 0, len(resolver.basePatterns))
	patterns = append(patterns, resolver.basePatterns...)
	patterns = append(patterns, resolver.loadDirectoryPatterns(resolver.rootPath, nil)...)
	return newChain(resolver, patterns)
}

// loadGlobalPatterns reads the ignore file referenced by the user's global
// Git configuration. A missing or unreadable configuration yields no rules.
func (resolver *Resolver) loadGlobalPatterns() []gitignore.Pattern {
	globalPatterns, loadError := gitignore.LoadGlobalPatterns(osfs.New("/"))
	if loadError != nil {
		resolver.logger.Warn(fmt.Sprintf(warningUnreadableLayerFormat, "global gitignore", loadError))
		return nil
	}
	return globalPatterns
}

// loadRepositoryExcludePatterns reads the repository-level exclude file under
// the version-control metadata directory, when present.
func (resolver *Resolver) loadRepositoryExcludePatterns() []gitignore.Pattern {
	excludeFilePath := filepath.Join(resolver.rootPath, filepath.FromSlash(utils.GitRepositoryExcludeFile))
	return resolver.loadPatternFile(excludeFilePath, nil)
}

// loadDirectoryPatterns reads the .gitignore file of a single directory. The
// domain anchors every parsed pattern to that directory.
func (resolver *Resolver) loadDirectoryPatterns(directoryPath string, domain []string) []gitignore.Pattern {
	if !resolver.useGitignore {
		return nil
	}
	ignoreFilePath := filepath.Join(directoryPath, utils.GitIgnoreFileName)
	return resolver.loadPatternFile(ignoreFilePath, domain)
}

// loadPatternFile parses one ignore file into patterns. Missing files are
// normal; any other failure degrades the layer to empty with a warning.
//
// #nosec G304
func (resolver *Resolver) loadPatternFile(ignoreFilePath string, domain []string) []gitignore.Pattern {
	fileHandle, openError := os.Open(ignoreFilePath)
	if openError != nil {
		if !os.IsNotExist(openError) {
			resolver.logger.Warn(fmt.Sprintf(warningUnreadableLayerFormat, ignoreFilePath, openError))
		}
		return nil
	}
	defer func() {
		if closeError := fileHandle.Close(); closeError != nil {
			resolver.logger.Warn(fmt.Sprintf(warningUnreadableLayerFormat, ignoreFilePath, closeError))
		}
	}()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == utils.EmptyString || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	if scanError := scanner.Err(); scanError != nil {
		resolver.logger.Warn(fmt.Sprintf(warningUnreadableLayerFormat, ignoreFilePath, scanError))
		return nil
	}
	return patterns
}

// matchesExclusion reports whether the relative path matches an explicit
// exclusion override. Patterns without a path separator also match the entry
// name alone, so "vendor" excludes any vendor directory regardless of depth.
func (resolver *Resolver) matchesExclusion(relativeSegments []string) bool {
	if len(resolver.exclusionPatterns) == 0 || len(relativeSegments) == 0 {
		return false
	}
	relativePath := strings.Join(relativeSegments, "/")
	entryName := relativeSegments[len(relativeSegments)-1]
	for _, pattern := range resolver.exclusionPatterns {
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if matched, _ := doublestar.Match(pattern, entryName); matched {
				return true
			}
		}
	}
	return false
}

// Chain is the ordered rule set in effect for one directory level. Deeper
// directories extend the chain with their own .gitignore patterns, which
// override shallower rules per gitignore precedence. Chains are immutable and
// safe for concurrent use by traversal workers.
type Chain struct {
	resolver *Resolver
	patterns []gitignore.Pattern
	matcher  gitignore.Matcher
}

// newChain builds a Chain with a matcher over the supplied patterns.
func newChain(resolver *Resolver, patterns []gitignore.Pattern) *Chain {
	chain := &Chain{resolver: resolver, patterns: patterns}
	if len(patterns) > 0 {
		chain.matcher = gitignore.NewMatcher(patterns)
	}
	return chain
}

// Descend returns the rule chain for a subdirectory, extending the current
// chain with the subdirectory's .gitignore when one exists. The relative
// segments identify the subdirectory with respect to the scan root.
func (chain *Chain) Descend(directoryPath string, relativeSegments []string) *Chain {
	loadedPatterns := chain.resolver.loadDirectoryPatterns(directoryPath, relativeSegments)
	if len(loadedPatterns) == 0 {
		return chain
	}
	mergedPatterns := make([]gitignore.Pattern, 0, len(chain.patterns)+len(loadedPatterns))
	mergedPatterns = append(mergedPatterns, chain.patterns...)
	mergedPatterns = append(mergedPatterns, loadedPatterns...)
	return newChain(chain.resolver, mergedPatterns)
}

// Excluded reports whether the entry identified by its root-relative segments
// is rejected by the rules in effect. The version-control metadata directory
// is rejected before any user rule is consulted and cannot be negated. A
// regular file named .git, such as a worktree or submodule pointer, is
// ordinary content.
func (chain *Chain) Excluded(relativeSegments []string, isDirectory bool) bool {
	if len(relativeSegments) == 0 {
		return false
	}
	if isDirectory && relativeSegments[len(relativeSegments)-1] == utils.GitDirectoryName {
		return true
	}
	if chain.resolver.matchesExclusion(relativeSegments) {
		return true
	}
	if chain.matcher != nil && chain.matcher.Match(relativeSegments, isDirectory) {
		return true
	}
	return false
}
