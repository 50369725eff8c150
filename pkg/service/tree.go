package service

import (
	"context"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/factpath"
	"github.com/papercomputeco/meh/pkg/storage"
)

// DefaultTreeDepth is used when Tree gets depth <= 0.
const DefaultTreeDepth = 3

// TreeNode is one path in a Tree. FactCount covers active facts at or below
// Path, including levels cut off by the depth limit.
type TreeNode struct {
	Name      string      `json:"name"`
	Path      string      `json:"path"`
	FactCount int         `json:"fact_count"`
	Children  []*TreeNode `json:"children,omitempty"`

	// Here counts the active facts stored at Path itself.
	Here int `json:"here"`

	// Truncated is set when deeper paths exist beyond the depth limit.
	Truncated bool `json:"truncated,omitempty"`
}

// HasChildren reports whether any path continues below n, shown or not.
func (n *TreeNode) HasChildren() bool {
	return len(n.Children) > 0 || n.Truncated
}

// Tree is the hierarchy below a path, depth levels deep.
type Tree struct {
	Root  *TreeNode `json:"root"`
	Depth int       `json:"depth"`
}

// Tree builds the hierarchy of active facts at or below path. Levels deeper
// than depth are folded into their ancestor's FactCount.
func (s *Service) Tree(ctx context.Context, path string, depth int) (*Tree, error) {
	if depth <= 0 {
		depth = DefaultTreeDepth
	}

	p, _, err := storage.ParentPrefix(path)
	if err != nil {
		return nil, err
	}

	facts, err := s.driver.GetByPathPrefix(ctx, p.String())
	if err != nil {
		return nil, err
	}

	root := &TreeNode{Name: p.Name(), Path: p.String()}
	if p.IsRoot() {
		root.Path = storage.RootAlias
	}

	for _, f := range facts {
		fp, err := factpath.Parse(f.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "fact %s has a malformed path", f.ID)
		}
		root.insert(fp.Segments()[p.Depth():], p, depth)
	}
	root.sort()

	return &Tree{Root: root, Depth: depth}, nil
}

// insert records one fact whose path continues below n by rest.
func (n *TreeNode) insert(rest []string, at factpath.Path, depth int) {
	n.FactCount++
	if len(rest) == 0 {
		n.Here++
		return
	}
	if depth == 0 {
		n.Truncated = true
		return
	}

	childPath, _ := at.Join(rest[0])
	idx := slices.IndexFunc(n.Children, func(c *TreeNode) bool { return c.Name == rest[0] })
	if idx < 0 {
		n.Children = append(n.Children, &TreeNode{Name: rest[0], Path: childPath.String()})
		idx = len(n.Children) - 1
	}
	n.Children[idx].insert(rest[1:], childPath, depth-1)
}

func (n *TreeNode) sort() {
	slices.SortFunc(n.Children, func(a, b *TreeNode) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, c := range n.Children {
		c.sort()
	}
}
