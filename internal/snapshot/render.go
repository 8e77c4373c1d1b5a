package snapshot

import (
	"sort"
	"strings"

	"github.com/temirov/snapfeed/internal/utils"
)

const (
	// rootLine represents the scan root at the top of the diagram.
	rootLine = ".\n"
	// middleConnector prefixes every child except the last at a level.
	middleConnector = "├── "
	// lastConnector prefixes the final child at a level.
	lastConnector = "└── "
	// continuationPrefix extends the indentation under a non-final branch.
	continuationPrefix = "│   "
	// terminalPrefix extends the indentation under a final branch.
	terminalPrefix = "    "
)

// Render serializes the tree into a box-drawing diagram. Children are listed
// in sorted name order at every level regardless of insertion order, so
// rendering the same tree is always byte-identical.
func Render(rootNode *TreeNode) string {
	var diagramBuilder strings.Builder
	diagramBuilder.WriteString(rootLine)
	renderChildren(&diagramBuilder, rootNode, utils.EmptyString)
	return diagramBuilder.String()
}

// renderChildren emits one line per child of a directory node and recurses
// into directory children with an extended prefix.
func renderChildren(diagramBuilder *strings.Builder, directoryNode *TreeNode, prefix string) {
	childNames := make([]string, 0, len(directoryNode.children))
	for childName := range directoryNode.children {
		childNames = append(childNames, childName)
	}
	sort.Strings(childNames)

	for childIndex, childName := range childNames {
		isLastChild := childIndex == len(childNames)-1
		connector := middleConnector
		childPrefix := continuationPrefix
		if isLastChild {
			connector = lastConnector
			childPrefix = terminalPrefix
		}

		diagramBuilder.WriteString(prefix)
		diagramBuilder.WriteString(connector)
		diagramBuilder.WriteString(childName)
		diagramBuilder.WriteString("\n")

		childNode := directoryNode.children[childName]
		if childNode.IsDirectory() {
			renderChildren(diagramBuilder, childNode, prefix+childPrefix)
		}
	}
}
