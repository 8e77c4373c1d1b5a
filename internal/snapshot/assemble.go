package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/snapfeed/internal/tokenizer"
	"github.com/temirov/snapfeed/internal/utils"
)

const (
	// headerFormat opens the document with the project name.
	headerFormat = "# Project Snapshot: %s\n\n"
	// summaryLine states the purpose of the document.
	summaryLine = "This file contains a snapshot of the project structure and source code, formatted for AI consumption.\n"
	// totalFilesFormat reports how many files the document includes.
	totalFilesFormat = "Total files included: %d\n"
	// tokenSummaryFormat reports the estimated token count of the content section.
	tokenSummaryFormat = "Estimated tokens: %d (%s)\n"
	// treeBlockFormat fences the rendered tree diagram.
	treeBlockFormat = "```\n%s\n```\n\n"
	// fileContentsHeader opens the concatenated content section.
	fileContentsHeader = "## File Contents\n\n"
	// fileBlockFormat fences one file's content, annotated with extension and relative path.
	fileBlockFormat = "```%s:%s\n%s\n```\n\n"
	// readFailureFormat becomes the block body when a file cannot be read.
	readFailureFormat = "Error reading file: %v"

	// warningTokenEstimateFormat reports a failed token estimate.
	warningTokenEstimateFormat = "unable to estimate tokens with %s: %v"
)

// Assembler builds the final snapshot document from a filtered path list.
// Callers short-circuit on an empty list; Assemble is only invoked when at
// least one file survived filtering.
type Assembler struct {
	// ProjectName appears in the document title.
	ProjectName string
	// RootPath anchors relative-path computation for the tree and fences.
	RootPath string
	// TokenCounter, when non-nil, adds an estimated token count to the header.
	TokenCounter tokenizer.Counter
	// Logger receives non-fatal assembly warnings. Optional.
	Logger *zap.Logger
}

// Assemble produces the snapshot document: title, summary, file count, the
// fenced tree diagram, and one fenced content block per file in list order.
// Individual file-read failures are recorded inline and never abort assembly.
func (assembler *Assembler) Assemble(filePaths []string) string {
	contentSection := assembler.renderFileContents(filePaths)

	var documentBuilder strings.Builder
	documentBuilder.WriteString(fmt.Sprintf(headerFormat, assembler.ProjectName))
	documentBuilder.WriteString(summaryLine)
	documentBuilder.WriteString(fmt.Sprintf(totalFilesFormat, len(filePaths)))
	if assembler.TokenCounter != nil {
		tokenCount, countError := assembler.TokenCounter.CountString(contentSection)
		if countError != nil {
			assembler.logWarning(fmt.Sprintf(warningTokenEstimateFormat, assembler.TokenCounter.Name(), countError))
		} else {
			documentBuilder.WriteString(fmt.Sprintf(tokenSummaryFormat, tokenCount, assembler.TokenCounter.Name()))
		}
	}
	documentBuilder.WriteString("\n")

	treeDiagram := Render(BuildTree(assembler.RootPath, filePaths))
	documentBuilder.WriteString(fmt.Sprintf(treeBlockFormat, treeDiagram))

	documentBuilder.WriteString(fileContentsHeader)
	documentBuilder.WriteString(contentSection)
	return documentBuilder.String()
}

// renderFileContents emits one fenced block per path in list order. The fence
// annotation is "{extension}:{relative-path}" with an empty extension for
// files that have none.
func (assembler *Assembler) renderFileContents(filePaths []string) string {
	var sectionBuilder strings.Builder
	for _, filePath := range filePaths {
		relativePath := utils.RelativePathOrSelf(filePath, assembler.RootPath)
		// #nosec G304
		contentBytes, readError := os.ReadFile(filePath)
		blockBody := string(contentBytes)
		if readError != nil {
			blockBody = fmt.Sprintf(readFailureFormat, readError)
		}
		sectionBuilder.WriteString(fmt.Sprintf(fileBlockFormat, fileExtension(filePath), relativePath, blockBody))
	}
	return sectionBuilder.String()
}

// fileExtension returns the extension without its leading dot. Dotfiles such
// as .gitignore have no extension.
func fileExtension(filePath string) string {
	baseName := filepath.Base(filePath)
	extension := filepath.Ext(baseName)
	if extension == utils.EmptyString || extension == baseName {
		return utils.EmptyString
	}
	return strings.TrimPrefix(extension, ".")
}

// logWarning forwards a warning to the configured logger, if any.
func (assembler *Assembler) logWarning(message string) {
	if assembler.Logger != nil {
		assembler.Logger.Warn(message)
	}
}
