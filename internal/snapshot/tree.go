// Package snapshot folds a filtered path list into a directory tree, renders
// the tree as a box-drawing diagram, and assembles the final snapshot
// document. Every stage is single-threaded and deterministic: the same path
// list always yields byte-identical output.
package snapshot

import (
	"strings"

	"github.com/temirov/snapfeed/internal/utils"
)

// TreeNode represents one entry in the project tree. A directory node owns a
// map from path-segment name to child node; a file node carries a nil child
// map. Map iteration order never reaches output: the renderer sorts child
// names at every level.
type TreeNode struct {
	children map[string]*TreeNode
}

// newDirectoryNode constructs an empty directory node.
func newDirectoryNode() *TreeNode {
	return &TreeNode{children: make(map[string]*TreeNode)}
}

// newFileNode constructs a file leaf.
func newFileNode() *TreeNode {
	return &TreeNode{}
}

// IsDirectory reports whether the node is a directory.
func (node *TreeNode) IsDirectory() bool {
	return node.children != nil
}

// BuildTree folds the filtered path list into a tree rooted at rootPath. Each
// path is inserted by its root-relative segments; paths outside the root fall
// back to their absolute form. A path equal to the root itself is a no-op.
func BuildTree(rootPath string, filePaths []string) *TreeNode {
	rootNode := newDirectoryNode()
	for _, filePath := range filePaths {
		relativePath := utils.RelativePathOrSelf(filePath, rootPath)
		if relativePath == "." || relativePath == utils.EmptyString {
			continue
		}
		relativePath = strings.TrimPrefix(relativePath, "/")
		rootNode.insert(strings.Split(relativePath, "/"))
	}
	return rootNode
}

// insert walks or creates directory nodes for every segment but the last and
// places a file leaf at the last segment. Re-inserting an identical path
// overwrites the same leaf key, so insertion is idempotent.
func (node *TreeNode) insert(segments []string) {
	if len(segments) == 0 || node.children == nil {
		return
	}
	if len(segments) == 1 {
		node.children[segments[0]] = newFileNode()
		return
	}
	childNode, childExists := node.children[segments[0]]
	if !childExists || !childNode.IsDirectory() {
		childNode = newDirectoryNode()
		node.children[segments[0]] = childNode
	}
	childNode.insert(segments[1:])
}
