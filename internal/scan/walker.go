// Package scan implements the parallel filesystem traversal that produces the
// filtered path list consumed by the snapshot pipeline. Traversal workers
// share nothing except a result channel; a single collector drains the channel
// after every worker finishes and sorts the drained paths, which is the sole
// ordering guarantee the downstream stages rely on.
package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/snapfeed/internal/ignore"
)

const (
	// resultChannelCapacity buffers emissions so workers rarely block on the collector.
	resultChannelCapacity = 256

	// warningReadDirectoryFormat reports a directory skipped during traversal.
	warningReadDirectoryFormat = "skipping directory %s: %v"
	// warningStatEntryFormat reports an entry whose metadata could not be resolved.
	warningStatEntryFormat = "skipping entry %s: %v"
	// errorAbsoluteRootFormat reports a root whose absolute path cannot be determined.
	errorAbsoluteRootFormat = "resolving absolute path for %s: %w"
)

// readDirectory lists a directory's entries. Tests substitute it to exercise
// unreadable-directory handling without depending on filesystem permissions.
var readDirectory = os.ReadDir

// Options configure a Walker.
type Options struct {
	// WorkerCount bounds traversal concurrency. Values below one fall back to
	// the number of available CPUs.
	WorkerCount int
	// FollowSymlinks lists symbolic links that resolve to regular files under
	// their link path. Symbolic links to directories are never descended.
	FollowSymlinks bool
}

// Walker traverses a directory tree concurrently, consulting the ignore rule
// chain for every entry and emitting accepted regular files.
type Walker struct {
	resolver       *ignore.Resolver
	workerCount    int
	followSymlinks bool
	logger         *zap.Logger
}

// NewWalker constructs a Walker over the supplied resolver.
func NewWalker(resolver *ignore.Resolver, options Options, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	workerCount := options.WorkerCount
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	return &Walker{
		resolver:       resolver,
		workerCount:    workerCount,
		followSymlinks: options.FollowSymlinks,
		logger:         logger,
	}
}

// Scan traverses rootPath and returns the sorted, deduplicated list of
// accepted regular-file paths. Entry-level failures are logged and skipped;
// an empty result is a valid outcome, not an error. Emission order across
// workers is unspecified; ordering is established only after collection.
func (walker *Walker) Scan(rootPath string) ([]string, error) {
	absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsoluteRootFormat, rootPath, absolutePathError)
	}

	workerGroup := new(errgroup.Group)
	workerGroup.SetLimit(walker.workerCount)

	results := make(chan string, resultChannelCapacity)
	collectorDone := make(chan struct{})
	var collectedPaths []string
	go func() {
		defer close(collectorDone)
		for acceptedPath := range results {
			collectedPaths = append(collectedPaths, acceptedPath)
		}
	}()

	rootChain := walker.resolver.RootChain()
	workerGroup.Go(func() error {
		walker.walkDirectory(workerGroup, absoluteRootPath, nil, rootChain, results)
		return nil
	})

	// Traversal absorbs every entry-level failure, so Wait only synchronizes.
	_ = workerGroup.Wait()
	close(results)
	<-collectorDone

	sort.Strings(collectedPaths)
	return deduplicateSorted(collectedPaths), nil
}

// walkDirectory processes one directory whose rule chain has already been
// extended with the directory's own .gitignore. Subdirectories fan out onto
// spare workers and fall back to synchronous recursion when the pool is full,
// so workers never block on each other.
func (walker *Walker) walkDirectory(workerGroup *errgroup.Group, directoryPath string, relativeSegments []string, chain *ignore.Chain, results chan<- string) {
	directoryEntries, readDirectoryError := readDirectory(directoryPath)
	if readDirectoryError != nil {
		walker.logger.Warn(fmt.Sprintf(warningReadDirectoryFormat, directoryPath, readDirectoryError))
		return
	}

	for _, directoryEntry := range directoryEntries {
		entryName := directoryEntry.Name()
		entryPath := filepath.Join(directoryPath, entryName)
		entrySegments := appendSegment(relativeSegments, entryName)
		entryType := directoryEntry.Type()
		isDirectory := directoryEntry.IsDir()

		if chain.Excluded(entrySegments, isDirectory) {
			continue
		}

		switch {
		case isDirectory:
			childChain := chain.Descend(entryPath, entrySegments)
			childPath := entryPath
			childSegments := entrySegments
			scheduled := workerGroup.TryGo(func() error {
				walker.walkDirectory(workerGroup, childPath, childSegments, childChain, results)
				return nil
			})
			if !scheduled {
				walker.walkDirectory(workerGroup, childPath, childSegments, childChain, results)
			}
		case entryType.IsRegular():
			results <- entryPath
		case entryType&fs.ModeSymlink != 0 && walker.followSymlinks:
			targetInfo, statError := os.Stat(entryPath)
			if statError != nil {
				walker.logger.Warn(fmt.Sprintf(warningStatEntryFormat, entryPath, statError))
				continue
			}
			if targetInfo.Mode().IsRegular() {
				results <- entryPath
			}
		default:
			// Sockets, devices, and unfollowed symlinks are not snapshot content.
		}
	}
}

// appendSegment returns a fresh slice extending segments with name. Workers
// share parent segment slices, so extension never mutates in place.
func appendSegment(segments []string, name string) []string {
	extended := make([]string, len(segments)+1)
	copy(extended, segments)
	extended[len(segments)] = name
	return extended
}

// deduplicateSorted removes adjacent duplicates from a sorted path list.
func deduplicateSorted(sortedPaths []string) []string {
	if len(sortedPaths) < 2 {
		return sortedPaths
	}
	deduplicated := sortedPaths[:1]
	for _, currentPath := range sortedPaths[1:] {
		if currentPath != deduplicated[len(deduplicated)-1] {
			deduplicated = append(deduplicated, currentPath)
		}
	}
	return deduplicated
}
