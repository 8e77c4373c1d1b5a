// Package cli provides the command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/snapfeed/internal/config"
	"github.com/temirov/snapfeed/internal/ignore"
	"github.com/temirov/snapfeed/internal/scan"
	"github.com/temirov/snapfeed/internal/services/clipboard"
	"github.com/temirov/snapfeed/internal/snapshot"
	"github.com/temirov/snapfeed/internal/tokenizer"
	"github.com/temirov/snapfeed/internal/utils"
)

const (
	exclusionFlagName      = "e"
	outFlagName            = "out"
	copyFlagName           = "copy"
	noGitignoreFlagName    = "no-gitignore"
	followSymlinksFlagName = "follow-symlinks"
	workersFlagName        = "workers"
	tokensFlagName         = "tokens"
	modelFlagName          = "model"
	configFlagName         = "config"
	versionFlagName        = "version"

	versionTemplate = "snapfeed version: %s\n"
	defaultPath     = "."
	rootUse         = "snapfeed [path]"

	rootShortDescription = "create a filtered project snapshot"
	// rootLongDescription provides detailed help for the root command.
	rootLongDescription = `snapfeed scans a project directory, filters it with gitignore semantics,
and renders the surviving files as one document: a directory tree diagram
followed by the content of every included file.
Use --out to write the document to a file and --copy to place it on the clipboard.`
	// rootUsageExample demonstrates command usage.
	rootUsageExample = `  # Print a snapshot of the current project to standard output
  snapfeed

  # Write a snapshot of a project to a file, excluding vendored code
  snapfeed -e vendor --out snapshot.md ~/src/project

  # Copy a snapshot with a token estimate to the clipboard
  snapfeed --tokens --copy .`

	exclusionFlagDescription        = "exclude path pattern"
	outFlagDescription              = "write the snapshot to a file instead of standard output"
	copyFlagDescription             = "copy the snapshot to the system clipboard"
	disableGitignoreFlagDescription = "do not use .gitignore rules"
	followSymlinksFlagDescription   = "include symlinks that resolve to regular files"
	workersFlagDescription          = "traversal worker count (0 selects the CPU count)"
	tokensFlagDescription           = "include an estimated token count in the header"
	modelFlagDescription            = "tokenizer model to use for token counting"
	configFlagDescription           = "configuration file path"
	versionFlagDescription          = "display application version"

	defaultTokenizerModelName = "gpt-4o"

	// statusNoFilesMessage reports that filtering left nothing to include.
	statusNoFilesMessage = "No files to include in the snapshot."
	// statusWrittenFormat reports a successful file write.
	statusWrittenFormat = "Snapshot successfully written to: %s\n"

	// errorAbsolutePathFormat reports failure to resolve an absolute path.
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	// errorPathMissingFormat reports a missing root path.
	errorPathMissingFormat = "path '%s' does not exist"
	// errorStatFormat reports failure to retrieve file statistics.
	errorStatFormat = "stat failed for '%s': %w"
	// errorNotDirectoryFormat reports a root path that is not a directory.
	errorNotDirectoryFormat = "path '%s' is not a directory"
	// errorWriteOutputFormat reports failure to write the snapshot destination.
	errorWriteOutputFormat = "writing snapshot to %s: %w"
	// errorCopyOutputFormat reports failure to copy the snapshot to the clipboard.
	errorCopyOutputFormat = "copying snapshot to clipboard: %w"

	// warningTokenizerUnavailableFormat reports a tokenizer that could not be constructed.
	warningTokenizerUnavailableFormat = "token estimate disabled: %v"
)

// Execute runs the snapfeed application.
func Execute(logger *zap.Logger) error {
	rootCommand := createRootCommand(logger)
	return rootCommand.Execute()
}

// rootOptions stores flag values for the root command.
type rootOptions struct {
	outputPath        string
	copyToClipboard   bool
	exclusionPatterns []string
	disableGitignore  bool
	followSymlinks    bool
	workerCount       int
	tokensEnabled     bool
	tokenizerModel    string
	configFilePath    string
	showVersion       bool
}

// createRootCommand builds the root Cobra command.
func createRootCommand(logger *zap.Logger) *cobra.Command {
	var options rootOptions

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				return nil
			}
			rootPath := defaultPath
			if len(arguments) > 0 {
				rootPath = arguments[0]
			}
			return runSnapshot(command, rootPath, options, logger)
		},
	}

	registerRootFlags(rootCommand, &options)

	return rootCommand
}

// registerRootFlags registers every root command flag on the command.
func registerRootFlags(rootCommand *cobra.Command, options *rootOptions) {
	rootCommand.Flags().StringArrayVarP(&options.exclusionPatterns, exclusionFlagName, exclusionFlagName, nil, exclusionFlagDescription)
	rootCommand.Flags().StringVarP(&options.outputPath, outFlagName, "o", utils.EmptyString, outFlagDescription)
	rootCommand.Flags().BoolVar(&options.disableGitignore, noGitignoreFlagName, false, disableGitignoreFlagDescription)
	rootCommand.Flags().BoolVar(&options.followSymlinks, followSymlinksFlagName, false, followSymlinksFlagDescription)
	rootCommand.Flags().IntVar(&options.workerCount, workersFlagName, 0, workersFlagDescription)
	rootCommand.Flags().BoolVar(&options.tokensEnabled, tokensFlagName, false, tokensFlagDescription)
	rootCommand.Flags().StringVar(&options.tokenizerModel, modelFlagName, defaultTokenizerModelName, modelFlagDescription)
	rootCommand.Flags().StringVar(&options.configFilePath, configFlagName, utils.EmptyString, configFlagDescription)
	rootCommand.Flags().BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)
	registerCopyFlag(rootCommand.Flags(), &options.copyToClipboard)
}

// scanSettings holds the effective settings after merging configuration
// file values with command line flags. Flags win when explicitly set.
type scanSettings struct {
	exclusionPatterns []string
	useGitignore      bool
	followSymlinks    bool
	workerCount       int
	tokensEnabled     bool
	tokenizerModel    string
	outputPath        string
	copyToClipboard   bool
}

// resolveScanSettings merges the application configuration with flags.
func resolveScanSettings(command *cobra.Command, options rootOptions, configuration config.ApplicationConfiguration) scanSettings {
	settings := scanSettings{
		useGitignore:   true,
		tokenizerModel: defaultTokenizerModelName,
	}

	settings.exclusionPatterns = append(settings.exclusionPatterns, configuration.Paths.Exclude...)
	settings.exclusionPatterns = append(settings.exclusionPatterns, options.exclusionPatterns...)
	settings.exclusionPatterns = utils.DeduplicatePatterns(settings.exclusionPatterns)

	if configuration.Paths.UseGitignore != nil {
		settings.useGitignore = *configuration.Paths.UseGitignore
	}
	if options.disableGitignore {
		settings.useGitignore = false
	}

	if configuration.Paths.FollowSymlinks != nil {
		settings.followSymlinks = *configuration.Paths.FollowSymlinks
	}
	if command.Flags().Changed(followSymlinksFlagName) {
		settings.followSymlinks = options.followSymlinks
	}

	if configuration.Scan.Workers != nil {
		settings.workerCount = *configuration.Scan.Workers
	}
	if command.Flags().Changed(workersFlagName) {
		settings.workerCount = options.workerCount
	}

	if configuration.Tokens.Enabled != nil {
		settings.tokensEnabled = *configuration.Tokens.Enabled
	}
	if command.Flags().Changed(tokensFlagName) {
		settings.tokensEnabled = options.tokensEnabled
	}
	if configuration.Tokens.Model != utils.EmptyString {
		settings.tokenizerModel = configuration.Tokens.Model
	}
	if command.Flags().Changed(modelFlagName) {
		settings.tokenizerModel = options.tokenizerModel
	}

	settings.outputPath = configuration.Output.Destination
	if command.Flags().Changed(outFlagName) {
		settings.outputPath = options.outputPath
	}
	if configuration.Output.Clipboard != nil {
		settings.copyToClipboard = *configuration.Output.Clipboard
	}
	if command.Flags().Changed(copyFlagName) {
		settings.copyToClipboard = options.copyToClipboard
	}

	return settings
}

// runSnapshot executes the full pipeline: resolve rules, walk, collect,
// assemble, and deliver the document. An empty filtered path list reports a
// status message instead of producing a document.
func runSnapshot(command *cobra.Command, rootPath string, options rootOptions, logger *zap.Logger) error {
	absoluteRootPath, absolutePathError := filepath.Abs(rootPath)
	if absolutePathError != nil {
		return fmt.Errorf(errorAbsolutePathFormat, rootPath, absolutePathError)
	}
	rootInfo, rootStatError := os.Stat(absoluteRootPath)
	if rootStatError != nil {
		if os.IsNotExist(rootStatError) {
			return fmt.Errorf(errorPathMissingFormat, rootPath)
		}
		return fmt.Errorf(errorStatFormat, rootPath, rootStatError)
	}
	if !rootInfo.IsDir() {
		return fmt.Errorf(errorNotDirectoryFormat, rootPath)
	}

	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: absoluteRootPath,
		ExplicitFilePath: options.configFilePath,
	})
	if configurationError != nil {
		return configurationError
	}
	settings := resolveScanSettings(command, options, applicationConfiguration)

	resolver := ignore.NewResolver(absoluteRootPath, ignore.Options{
		UseGitignore:      settings.useGitignore,
		ExclusionPatterns: settings.exclusionPatterns,
	}, logger)
	walker := scan.NewWalker(resolver, scan.Options{
		WorkerCount:    settings.workerCount,
		FollowSymlinks: settings.followSymlinks,
	}, logger)

	filteredPaths, scanError := walker.Scan(absoluteRootPath)
	if scanError != nil {
		return scanError
	}
	if len(filteredPaths) == 0 {
		fmt.Fprintln(os.Stderr, statusNoFilesMessage)
		return nil
	}

	var tokenCounter tokenizer.Counter
	if settings.tokensEnabled {
		counter, _, counterError := tokenizer.NewCounter(settings.tokenizerModel)
		if counterError != nil {
			logger.Warn(fmt.Sprintf(warningTokenizerUnavailableFormat, counterError))
		} else {
			tokenCounter = counter
		}
	}

	assembler := snapshot.Assembler{
		ProjectName:  filepath.Base(absoluteRootPath),
		RootPath:     absoluteRootPath,
		TokenCounter: tokenCounter,
		Logger:       logger,
	}
	document := assembler.Assemble(filteredPaths)

	return deliverDocument(document, settings)
}

// deliverDocument writes the assembled document to every configured
// destination. Destination failures are the one fatal error class.
func deliverDocument(document string, settings scanSettings) error {
	if settings.copyToClipboard {
		if copyError := clipboard.NewService().Copy(document); copyError != nil {
			return fmt.Errorf(errorCopyOutputFormat, copyError)
		}
	}

	if settings.outputPath != utils.EmptyString {
		if writeError := os.WriteFile(settings.outputPath, []byte(document), 0o644); writeError != nil {
			return fmt.Errorf(errorWriteOutputFormat, settings.outputPath, writeError)
		}
		fmt.Fprintf(os.Stderr, statusWrittenFormat, settings.outputPath)
		return nil
	}

	_, printError := os.Stdout.WriteString(document)
	return printError
}
