// Package layout provides byte-offset accessors over a 4096-byte page
// buffer. It knows nothing about files or caching — it is pure,
// allocation-free arithmetic on a slice the caller owns.
package layout

import "encoding/binary"

// PageSize is the fixed on-disk and in-memory page size.
const PageSize = 4096

// Node types, stored in the first byte of every page.
const (
	NodeInternal uint8 = 0
	NodeLeaf     uint8 = 1
)

// Common node header layout: node_type(1) is_root(1) parent_page(4).
const (
	NodeTypeOffset   = 0
	NodeTypeSize     = 1
	IsRootOffset     = NodeTypeOffset + NodeTypeSize
	IsRootSize       = 1
	ParentPageOffset = IsRootOffset + IsRootSize
	ParentPageSize   = 4
	CommonHeaderSize = ParentPageOffset + ParentPageSize // 6
)

// Leaf node header layout: common header, num_cells(4), next_leaf(4).
const (
	LeafNumCellsOffset = CommonHeaderSize
	LeafNumCellsSize   = 4
	LeafNextLeafOffset = LeafNumCellsOffset + LeafNumCellsSize
	LeafNextLeafSize   = 4
	LeafHeaderSize     = LeafNextLeafOffset + LeafNextLeafSize // 14
)

// Internal node header layout: common header, num_keys(4), right_child(4).
const (
	InternalNumKeysOffset   = CommonHeaderSize
	InternalNumKeysSize     = 4
	InternalRightChildOffset = InternalNumKeysOffset + InternalNumKeysSize
	InternalRightChildSize   = 4
	InternalHeaderSize       = InternalRightChildOffset + InternalRightChildSize // 14
)

// Leaf cell: key(4) + row(RowSize).
const LeafKeySize = 4

// Internal cell: child(4) + key(4).
const (
	InternalChildSize = 4
	InternalKeySize   = 4
	InternalCellSize  = InternalChildSize + InternalKeySize
)

// LeafCellSize returns the size in bytes of one leaf cell for the given
// row size.
func LeafCellSize(rowSize int) int { return LeafKeySize + rowSize }

// LeafMaxCells returns the maximum number of cells a leaf can hold
// before it must split, for the given row size.
func LeafMaxCells(rowSize int) int {
	return (PageSize - LeafHeaderSize) / LeafCellSize(rowSize)
}

// SplitCounts returns (leftCount, rightCount) when LEAF_MAX_CELLS+1
// cells are redistributed across two leaves: the right side receives
// ceil((max+1)/2), the remainder stays on the left.
func SplitCounts(maxCells int) (left, right int) {
	total := maxCells + 1
	right = (total + 1) / 2
	left = total - right
	return
}

// InternalMaxCells is the analogous bound for internal-node cells,
// derived the same way as LeafMaxCells from the node's own header and
// cell size. It governs the recursive internal-node split path.
func InternalMaxCells() int {
	return (PageSize - InternalHeaderSize) / InternalCellSize
}

// Node wraps a page buffer with typed field accessors. It never copies
// the buffer; every accessor reads or writes through it directly.
// PageNum is the page this buffer was loaded from; it is bookkeeping
// only and is never persisted as part of the node itself.
type Node struct {
	Buf     []byte
	PageNum uint32
}

func (n Node) NodeType() uint8 { return n.Buf[NodeTypeOffset] }
func (n Node) SetNodeType(t uint8) { n.Buf[NodeTypeOffset] = t }

func (n Node) IsRoot() bool { return n.Buf[IsRootOffset] != 0 }
func (n Node) SetIsRoot(v bool) {
	if v {
		n.Buf[IsRootOffset] = 1
	} else {
		n.Buf[IsRootOffset] = 0
	}
}

func (n Node) Parent() uint32 {
	return binary.LittleEndian.Uint32(n.Buf[ParentPageOffset : ParentPageOffset+ParentPageSize])
}
func (n Node) SetParent(p uint32) {
	binary.LittleEndian.PutUint32(n.Buf[ParentPageOffset:ParentPageOffset+ParentPageSize], p)
}

// --- Leaf accessors ---

func (n Node) NumCells() uint32 {
	return binary.LittleEndian.Uint32(n.Buf[LeafNumCellsOffset : LeafNumCellsOffset+LeafNumCellsSize])
}
func (n Node) SetNumCells(c uint32) {
	binary.LittleEndian.PutUint32(n.Buf[LeafNumCellsOffset:LeafNumCellsOffset+LeafNumCellsSize], c)
}

func (n Node) NextLeaf() uint32 {
	return binary.LittleEndian.Uint32(n.Buf[LeafNextLeafOffset : LeafNextLeafOffset+LeafNextLeafSize])
}
func (n Node) SetNextLeaf(p uint32) {
	binary.LittleEndian.PutUint32(n.Buf[LeafNextLeafOffset:LeafNextLeafOffset+LeafNextLeafSize], p)
}

// LeafCellOffset returns the byte offset of cell i within the page.
func LeafCellOffset(i, rowSize int) int {
	return LeafHeaderSize + i*LeafCellSize(rowSize)
}

// Cell returns the raw (key+row) bytes for leaf cell i.
func (n Node) Cell(i, rowSize int) []byte {
	off := LeafCellOffset(i, rowSize)
	return n.Buf[off : off+LeafCellSize(rowSize)]
}

// Key returns the key of leaf cell i.
func (n Node) Key(i, rowSize int) uint32 {
	off := LeafCellOffset(i, rowSize)
	return binary.LittleEndian.Uint32(n.Buf[off : off+LeafKeySize])
}

// SetKey writes the key of leaf cell i.
func (n Node) SetKey(i, rowSize int, key uint32) {
	off := LeafCellOffset(i, rowSize)
	binary.LittleEndian.PutUint32(n.Buf[off:off+LeafKeySize], key)
}

// Value returns the row-payload slice of leaf cell i.
func (n Node) Value(i, rowSize int) []byte {
	off := LeafCellOffset(i, rowSize) + LeafKeySize
	return n.Buf[off : off+rowSize]
}

// MaxKeyLeaf returns the last key of a leaf node (its maximum, since
// leaf keys are strictly increasing).
func (n Node) MaxKeyLeaf(rowSize int) uint32 {
	nc := n.NumCells()
	if nc == 0 {
		return 0
	}
	return n.Key(int(nc)-1, rowSize)
}

// InitializeLeaf resets the buffer to an empty leaf header. It does not
// zero the cell area; callers never read past NumCells().
func (n Node) InitializeLeaf() {
	n.SetNodeType(NodeLeaf)
	n.SetIsRoot(false)
	n.SetNumCells(0)
	n.SetNextLeaf(0)
}

// --- Internal accessors ---

func (n Node) NumKeys() uint32 {
	return binary.LittleEndian.Uint32(n.Buf[InternalNumKeysOffset : InternalNumKeysOffset+InternalNumKeysSize])
}
func (n Node) SetNumKeys(k uint32) {
	binary.LittleEndian.PutUint32(n.Buf[InternalNumKeysOffset:InternalNumKeysOffset+InternalNumKeysSize], k)
}

func (n Node) RightChild() uint32 {
	return binary.LittleEndian.Uint32(n.Buf[InternalRightChildOffset : InternalRightChildOffset+InternalRightChildSize])
}
func (n Node) SetRightChild(p uint32) {
	binary.LittleEndian.PutUint32(n.Buf[InternalRightChildOffset:InternalRightChildOffset+InternalRightChildSize], p)
}

// InternalCellOffset returns the byte offset of internal cell i.
func InternalCellOffset(i int) int {
	return InternalHeaderSize + i*InternalCellSize
}

// ChildAt resolves child i, where i == NumKeys() is the right child.
// i > NumKeys() is a programmer error and panics — callers must never
// probe past the valid range.
func (n Node) ChildAt(i int) uint32 {
	numKeys := int(n.NumKeys())
	if i > numKeys {
		panic("layout: child index beyond num_keys")
	}
	if i == numKeys {
		return n.RightChild()
	}
	off := InternalCellOffset(i)
	return binary.LittleEndian.Uint32(n.Buf[off : off+InternalChildSize])
}

func (n Node) SetChildAt(i int, child uint32) {
	off := InternalCellOffset(i)
	binary.LittleEndian.PutUint32(n.Buf[off:off+InternalChildSize], child)
}

func (n Node) InternalKey(i int) uint32 {
	off := InternalCellOffset(i) + InternalChildSize
	return binary.LittleEndian.Uint32(n.Buf[off : off+InternalKeySize])
}

func (n Node) SetInternalKey(i int, key uint32) {
	off := InternalCellOffset(i) + InternalChildSize
	binary.LittleEndian.PutUint32(n.Buf[off:off+InternalKeySize], key)
}

// MaxKeyInternal returns the last key of an internal node.
func (n Node) MaxKeyInternal() uint32 {
	nk := n.NumKeys()
	if nk == 0 {
		return 0
	}
	return n.InternalKey(int(nk) - 1)
}

// InitializeInternal resets the buffer to an empty internal header.
func (n Node) InitializeInternal() {
	n.SetNodeType(NodeInternal)
	n.SetIsRoot(false)
	n.SetNumKeys(0)
	n.SetRightChild(0)
}
