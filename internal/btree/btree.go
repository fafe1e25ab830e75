// Package btree implements the disk-resident B+ tree keyed by row id:
// search, insert with leaf split and root promotion, recursive
// internal-node split, and an ordered cursor.
package btree

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"leafbase/internal/layout"
	"leafbase/internal/pager"
	"leafbase/internal/row"
)

// ErrDuplicateKey is returned by Insert when the key already exists.
var ErrDuplicateKey = errors.New("duplicate key")

// RootPageNum is always 0 in this single-table design.
const RootPageNum = 0

// LeafMaxCells and InternalMaxCells are derived once for the fixed
// 291-byte row this engine serves.
var (
	LeafMaxCells     = layout.LeafMaxCells(row.Size)
	InternalMaxCells = layout.InternalMaxCells()
)

// Tree owns the pager and the page number of its root. Page 0 is
// always the root; new pages are only ever appended.
type Tree struct {
	pager *pager.Pager
	log   *zap.Logger
}

// Open wraps an already-open pager as a B+ tree. If the pager has no
// pages yet, page 0 is allocated and initialized as an empty leaf root.
func Open(p *pager.Pager, log *zap.Logger) *Tree {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tree{pager: p, log: log}
	if p.NumPages() == 0 {
		root := p.GetPage(p.AllocatePage())
		root.InitializeLeaf()
		root.SetIsRoot(true)
	}
	return t
}

// Cursor identifies a position in the tree: a leaf page and a cell
// index, plus an end-of-table flag. Cursors are ephemeral, created per
// operation and discarded after use.
type Cursor struct {
	tree   *Tree
	Page   uint32
	Cell   int
	AtEnd  bool
}

// Find descends from the root to the leaf that would contain key,
// returning a cursor at the exact match or at the insertion point.
func (t *Tree) Find(key uint32) *Cursor {
	page := RootPageNum
	for {
		node := t.pager.GetPage(page)
		if node.NodeType() == layout.NodeLeaf {
			idx := sort.Search(int(node.NumCells()), func(i int) bool {
				return node.Key(i, row.Size) >= key
			})
			return &Cursor{tree: t, Page: page, Cell: idx}
		}
		numKeys := int(node.NumKeys())
		childIdx := sort.Search(numKeys, func(i int) bool {
			return node.InternalKey(i) >= key
		})
		page = node.ChildAt(childIdx)
	}
}

// Start returns a cursor positioned at the first cell of the leftmost
// leaf. Because 0 is the minimum u32 this is simply Find(0).
func (t *Tree) Start() *Cursor {
	c := t.Find(0)
	leaf := t.pager.GetPage(c.Page)
	c.AtEnd = leaf.NumCells() == 0
	return c
}

// Value returns the row-payload bytes at the cursor's current position.
func (c *Cursor) Value() []byte {
	leaf := c.tree.pager.GetPage(c.Page)
	return leaf.Value(c.Cell, row.Size)
}

// Advance moves the cursor to the next cell in key order, crossing
// into the sibling leaf via next_leaf when the current leaf is
// exhausted.
func (c *Cursor) Advance() {
	leaf := c.tree.pager.GetPage(c.Page)
	c.Cell++
	if uint32(c.Cell) < leaf.NumCells() {
		return
	}
	next := leaf.NextLeaf()
	if next == 0 {
		c.AtEnd = true
		return
	}
	c.Page = next
	c.Cell = 0
}

// Insert adds row r keyed by r.ID into the tree.
func (t *Tree) Insert(r row.Row) error {
	c := t.Find(r.ID)
	leaf := t.pager.GetPage(c.Page)
	if uint32(c.Cell) < leaf.NumCells() && leaf.Key(c.Cell, row.Size) == r.ID {
		return ErrDuplicateKey
	}

	var buf [row.Size]byte
	row.Encode(r, buf[:])
	t.leafInsert(c.Page, c.Cell, r.ID, buf[:])
	return nil
}

// leafInsert performs the no-split insert, or triggers a split followed
// by parent/root maintenance when the leaf is already full.
func (t *Tree) leafInsert(page uint32, cellNum int, key uint32, rowBytes []byte) {
	leaf := t.pager.GetPage(page)
	numCells := int(leaf.NumCells())

	if numCells < LeafMaxCells {
		for i := numCells; i > cellNum; i-- {
			copy(leaf.Cell(i, row.Size), leaf.Cell(i-1, row.Size))
		}
		leaf.SetKey(cellNum, row.Size, key)
		copy(leaf.Value(cellNum, row.Size), rowBytes)
		leaf.SetNumCells(uint32(numCells + 1))
		return
	}

	t.splitLeafAndInsert(page, cellNum, key, rowBytes)
}

// splitLeafAndInsert redistributes LEAF_MAX_CELLS+1 logical cells (the
// existing ones plus the new one) across the old leaf and a freshly
// allocated sibling, then propagates the split upward.
func (t *Tree) splitLeafAndInsert(oldPage uint32, cellNum int, key uint32, rowBytes []byte) {
	old := t.pager.GetPage(oldPage)

	newPage := t.pager.AllocatePage()
	newNode := t.pager.GetPage(newPage)
	newNode.InitializeLeaf()
	newNode.SetParent(old.Parent())

	newNode.SetNextLeaf(old.NextLeaf())
	old.SetNextLeaf(newPage)

	left, _ := layout.SplitCounts(LeafMaxCells)

	// Snapshot the old leaf's existing cells before overwriting; the
	// destination loop below writes in place and must not clobber
	// source data it hasn't read yet.
	oldCells := make([][]byte, LeafMaxCells)
	for i := 0; i < LeafMaxCells; i++ {
		buf := make([]byte, layout.LeafCellSize(row.Size))
		copy(buf, old.Cell(i, row.Size))
		oldCells[i] = buf
	}

	for i := LeafMaxCells; i >= 0; i-- {
		var dest *layout.Node
		var destIdx int
		if i >= left {
			dest = newNode
		} else {
			dest = old
		}
		destIdx = i % left

		switch {
		case i == cellNum:
			dest.SetKey(destIdx, row.Size, key)
			copy(dest.Value(destIdx, row.Size), rowBytes)
		case i > cellNum:
			src := oldCells[i-1]
			copy(dest.Cell(destIdx, row.Size), src)
		default:
			src := oldCells[i]
			copy(dest.Cell(destIdx, row.Size), src)
		}
	}

	old.SetNumCells(uint32(left))
	newNode.SetNumCells(uint32(LeafMaxCells + 1 - left))

	if old.IsRoot() {
		t.createNewRoot(newPage)
		return
	}

	t.insertIntoParent(old.Parent(), oldPage, newPage)
}

// createNewRoot implements root promotion: the old root is copied
// bytewise into a newly allocated left page, and the root page is
// re-initialized as an internal node with one key.
func (t *Tree) createNewRoot(rightPage uint32) {
	root := t.pager.GetPage(RootPageNum)

	leftPage := t.pager.AllocatePage()
	left := t.pager.GetPage(leftPage)
	copy(left.Buf, root.Buf)
	left.SetIsRoot(false)

	right := t.pager.GetPage(rightPage)

	var leftMaxKey uint32
	if left.NodeType() == layout.NodeLeaf {
		leftMaxKey = left.MaxKeyLeaf(row.Size)
	} else {
		leftMaxKey = t.subtreeMax(leftPage)
		// left's children still believe their parent is page 0 (the
		// old root they were copied from); now that left lives at
		// leftPage, repoint them.
		t.reparentChildren(left, t.children(left))
	}

	root.InitializeInternal()
	root.SetIsRoot(true)
	root.SetNumKeys(1)
	root.SetChildAt(0, leftPage)
	root.SetInternalKey(0, leftMaxKey)
	root.SetRightChild(rightPage)

	left.SetParent(RootPageNum)
	right.SetParent(RootPageNum)

	t.log.Debug("root promoted", zap.Uint32("left", leftPage), zap.Uint32("right", rightPage))
}

// insertIntoParent inserts newChildPage into parentPage immediately
// after splitChildPage, splitting the parent recursively if it
// overflows. Separator keys are always recomputed from each child's
// live subtree maximum, so no key is threaded through this call.
func (t *Tree) insertIntoParent(parentPage, splitChildPage, newChildPage uint32) {
	parent := t.pager.GetPage(parentPage)

	children := t.children(parent)
	at := indexOf(children, splitChildPage)
	children = append(children, 0)
	copy(children[at+2:], children[at+1:])
	children[at+1] = newChildPage

	if len(children)-1 <= InternalMaxCells {
		t.rebuildInternal(parent, children)
		return
	}

	t.splitInternalAndInsert(parentPage, children)
}

// children returns the ordered child-page list of an internal node:
// NumKeys() regular children followed by RightChild().
func (t *Tree) children(node *layout.Node) []uint32 {
	numKeys := int(node.NumKeys())
	out := make([]uint32, numKeys+1)
	for i := 0; i < numKeys; i++ {
		out[i] = node.ChildAt(i)
	}
	out[numKeys] = node.RightChild()
	return out
}

func indexOf(children []uint32, page uint32) int {
	for i, c := range children {
		if c == page {
			return i
		}
	}
	panic("btree: split child not found in parent")
}

// rebuildInternal rewrites node's cells from a child list, recomputing
// every separator key directly from each child's current subtree
// maximum rather than threading stale keys through the split: simpler
// and self-correcting.
func (t *Tree) rebuildInternal(node *layout.Node, children []uint32) {
	numKeys := len(children) - 1
	node.SetNumKeys(uint32(numKeys))
	for i := 0; i < numKeys; i++ {
		node.SetChildAt(i, children[i])
		node.SetInternalKey(i, t.subtreeMax(children[i]))
	}
	node.SetRightChild(children[numKeys])
	t.reparentChildren(node, children)
}

// splitInternalAndInsert splits an overflowing internal node's
// (already-expanded) child list evenly: the first half stays at
// oldPage and the second half, starting at the median child, moves to
// a new internal page, which is then inserted into the grandparent
// right after oldPage (or a new root is promoted). The grandparent's
// separator for oldPage is recomputed as its new subtree maximum.
func (t *Tree) splitInternalAndInsert(oldPage uint32, children []uint32) {
	old := t.pager.GetPage(oldPage)
	parentOfOld := old.Parent()
	wasRoot := old.IsRoot()

	mid := len(children) / 2
	leftChildren := children[:mid]
	rightChildren := children[mid:]

	newPage := t.pager.AllocatePage()
	newNode := t.pager.GetPage(newPage)
	newNode.InitializeInternal()
	newNode.SetParent(parentOfOld)
	t.rebuildInternal(newNode, rightChildren)

	old.InitializeInternal()
	old.SetParent(parentOfOld)
	t.rebuildInternal(old, leftChildren)

	if wasRoot {
		t.createNewRoot(newPage)
		return
	}

	t.insertIntoParent(parentOfOld, oldPage, newPage)
}

// reparentChildren fixes up the parent pointer of every child in the
// given list to point at node's page.
func (t *Tree) reparentChildren(node *layout.Node, children []uint32) {
	for _, c := range children {
		t.pager.GetPage(c).SetParent(node.PageNum)
	}
}

// subtreeMax returns the maximum key reachable under the subtree rooted
// at page, used when propagating a separator key after a split.
func (t *Tree) subtreeMax(page uint32) uint32 {
	node := t.pager.GetPage(page)
	if node.NodeType() == layout.NodeLeaf {
		return node.MaxKeyLeaf(row.Size)
	}
	return t.subtreeMax(node.RightChild())
}
