package analyze

import (
	"context"
	"strings"

	"churnmap/internal/changemap"
	"churnmap/internal/object"
)

// NodeType discriminates files from directories in the result tree
type NodeType string

const (
	// FileNode is a blob leaf
	FileNode NodeType = "file"
	// DirectoryNode is an interior tree node
	DirectoryNode NodeType = "directory"
)

// Node is one element of the annotated result tree. NumChanges is the
// number of ancestry edges on which the content at this path was
// modified; NumFiles is 1 for a file and the number of blob leaves in
// the subtree for a directory. The tree is immutable once returned.
type Node struct {
	Name       string   `json:"name" yaml:"name"`
	Type       NodeType `json:"type" yaml:"type"`
	NumChanges int      `json:"numChanges" yaml:"numChanges"`
	NumFiles   int      `json:"numFiles" yaml:"numFiles"`
	Children   []*Node  `json:"children,omitempty" yaml:"children,omitempty"`

	// parent is a non-owning back-reference used only to propagate
	// NumFiles upward during construction
	parent *Node
}

// BuildTree materializes the annotated tree for the head commit's root
// tree. Children keep the insertion order of tree resolution; NumFiles
// is propagated to every ancestor as each leaf is discovered.
func BuildTree(ctx context.Context, provider object.Provider, rootTree object.ID, changes *changemap.Map) (*Node, error) {
	root := &Node{
		Name:       "",
		Type:       DirectoryNode,
		NumChanges: changes.Count(diffRootPath),
	}
	if err := fillTree(ctx, provider, root, diffRootPath, rootTree, changes); err != nil {
		return nil, err
	}
	return root, nil
}

const diffRootPath = "/"

func fillTree(ctx context.Context, provider object.Provider, node *Node, path string, tree object.ID, changes *changemap.Map) error {
	entries, err := provider.ResolveTree(ctx, tree)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Kind == object.KindTree {
			childPath := path + entry.Name + "/"
			child := &Node{
				Name:       entry.Name,
				Type:       DirectoryNode,
				NumChanges: changes.Count(childPath),
				parent:     node,
			}
			node.Children = append(node.Children, child)
			if err := fillTree(ctx, provider, child, childPath, entry.ID, changes); err != nil {
				return err
			}
			continue
		}

		leaf := &Node{
			Name:       entry.Name,
			Type:       FileNode,
			NumChanges: changes.Count(path + entry.Name),
			NumFiles:   1,
			parent:     node,
		}
		node.Children = append(node.Children, leaf)
		for ancestor := node; ancestor != nil; ancestor = ancestor.parent {
			ancestor.NumFiles++
		}
	}
	return nil
}

// Lookup resolves a slash-delimited path below root one segment at a
// time. The empty path is the root itself. Lookup fails closed: any
// missing segment yields an absence signal, not an error.
func Lookup(root *Node, path string) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return root, true
	}

	node := root
	for _, segment := range strings.Split(path, "/") {
		var next *Node
		for _, child := range node.Children {
			if child.Name == segment {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		node = next
	}
	return node, true
}
