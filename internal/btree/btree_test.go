package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"leafbase/internal/layout"
	"leafbase/internal/pager"
	"leafbase/internal/row"
)

func newTree(t *testing.T) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.db")
	p := pager.Open(path, 0, nil)
	return Open(p, nil)
}

func insertN(t *testing.T, tree *Tree, ids ...uint32) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, tree.Insert(row.Row{ID: id, Username: "u", Email: "e@x"}))
	}
}

func collect(tree *Tree) []uint32 {
	var out []uint32
	c := tree.Start()
	for !c.AtEnd {
		out = append(out, row.Decode(c.Value()).ID)
		c.Advance()
	}
	return out
}

func TestFreshFileHasEmptyLeafRoot(t *testing.T) {
	tree := newTree(t)
	root := tree.pager.GetPage(RootPageNum)
	require.Equal(t, layout.NodeLeaf, root.NodeType())
	require.True(t, root.IsRoot())
	require.Equal(t, uint32(0), root.NumCells())
}

func TestInsertAndDuplicate(t *testing.T) {
	tree := newTree(t)
	insertN(t, tree, 1, 2, 3)
	err := tree.Insert(row.Row{ID: 2, Username: "x", Email: "y"})
	require.ErrorIs(t, err, ErrDuplicateKey)
}

// Distinct keys inserted in any permutation come back sorted ascending.
func TestOutOfOrderInsertSortsAscending(t *testing.T) {
	tree := newTree(t)
	insertN(t, tree, 5, 1, 4, 2, 3)
	require.Equal(t, []uint32{1, 2, 3, 4, 5}, collect(tree))
}

// Inserting LEAF_MAX_CELLS+1 rows splits the leaf and promotes a new
// internal root with exactly one key.
func TestSplitPromotesSingleKeyRoot(t *testing.T) {
	tree := newTree(t)
	ids := make([]uint32, LeafMaxCells+1)
	for i := range ids {
		ids[i] = uint32(i + 1)
	}
	insertN(t, tree, ids...)

	root := tree.pager.GetPage(RootPageNum)
	require.Equal(t, layout.NodeInternal, root.NodeType())
	require.Equal(t, uint32(1), root.NumKeys())

	left, right := layout.SplitCounts(LeafMaxCells)
	leftChild := tree.pager.GetPage(root.ChildAt(0))
	rightChild := tree.pager.GetPage(root.RightChild())
	require.Equal(t, uint32(left), leftChild.NumCells())
	require.Equal(t, uint32(right), rightChild.NumCells())
	require.Equal(t, leftChild.MaxKeyLeaf(row.Size), root.InternalKey(0))

	require.Equal(t, ids, collect(tree))
}

// A large run of inserts forces several splits and, past
// InternalMaxCells-worth of leaves under the root, at least one
// internal-node split; ordering and the separator-key invariant must
// both survive. With LeafMaxCells=13 (7/7 split) and
// InternalMaxCells=510, a single internal node saturates at roughly
// 511*7 =~ 3577 rows, so n must comfortably clear that to actually
// exercise splitInternalAndInsert rather than just leafInsert.
func TestManySplitsPreserveOrderingAndKeyInvariant(t *testing.T) {
	// 13000 rows at 7 per leaf need roughly 1860 pages, far more than
	// the default TableMaxPages slots newTree's pager gets, so this test
	// opens its pager with room for them.
	p := pager.Open(filepath.Join(t.TempDir(), "t.db"), 4096, nil)
	tree := Open(p, nil)
	const n = 13000
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(n - i) // descending insert order
	}
	insertN(t, tree, ids...)

	got := collect(tree)
	require.Len(t, got, n)
	for i := 0; i < n; i++ {
		require.Equal(t, uint32(i+1), got[i])
	}

	require.True(t, hasGrandchildInternal(tree, RootPageNum),
		"expected the tree to be deep enough to have split an internal node")

	verifyInternalKeyInvariant(t, tree, RootPageNum)
}

// hasGrandchildInternal reports whether root has at least one child
// that is itself an internal node, i.e. the tree is at least 3 levels
// deep. A 2-level tree (internal root over leaves) never exercises
// splitInternalAndInsert; only a 3rd level proves an internal node
// actually overflowed and split.
func hasGrandchildInternal(tree *Tree, root uint32) bool {
	node := tree.pager.GetPage(root)
	if node.NodeType() != layout.NodeInternal {
		return false
	}
	children := tree.children(node)
	for _, c := range children {
		if tree.pager.GetPage(c).NodeType() == layout.NodeInternal {
			return true
		}
	}
	return false
}

func verifyInternalKeyInvariant(t *testing.T, tree *Tree, page uint32) {
	t.Helper()
	node := tree.pager.GetPage(page)
	if node.NodeType() == layout.NodeLeaf {
		return
	}
	numKeys := int(node.NumKeys())
	for i := 0; i < numKeys; i++ {
		child := node.ChildAt(i)
		require.Equal(t, tree.subtreeMax(child), node.InternalKey(i))
		verifyInternalKeyInvariant(t, tree, child)
	}
	verifyInternalKeyInvariant(t, tree, node.RightChild())
}

func TestCursorStartOnEmptyTreeIsAtEnd(t *testing.T) {
	tree := newTree(t)
	c := tree.Start()
	require.True(t, c.AtEnd)
}
