// Package engine implements the table/engine façade:
// open/close/insert/select/debugTree. It owns the pager and the B+
// tree and is the one entry point external collaborators (the REPL)
// talk to.
package engine

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"leafbase/internal/btree"
	"leafbase/internal/layout"
	"leafbase/internal/pager"
	"leafbase/internal/row"
)

// Table is the open handle to one database file.
type Table struct {
	pager *pager.Pager
	tree  *btree.Tree
	log   *zap.Logger
}

// Open opens path, creating it if absent, and initializes the root
// page as an empty leaf if the file is new.
func Open(path string, maxPages int, log *zap.Logger) *Table {
	if log == nil {
		log = zap.NewNop()
	}
	p := pager.Open(path, maxPages, log)
	t := btree.Open(p, log)
	log.Info("table opened", zap.String("path", path), zap.Int("pages", p.NumPages()))
	return &Table{pager: p, tree: t, log: log}
}

// Insert stores r, rejecting duplicate ids.
func (t *Table) Insert(r row.Row) error {
	if err := t.tree.Insert(r); err != nil {
		return err
	}
	t.log.Debug("row inserted", zap.Uint32("id", r.ID))
	return nil
}

// SelectAll returns every row in ascending id order.
func (t *Table) SelectAll() []row.Row {
	var out []row.Row
	c := t.tree.Start()
	for !c.AtEnd {
		out = append(out, row.Decode(c.Value()))
		c.Advance()
	}
	return out
}

// Close flushes every loaded page and releases the file handle.
func (t *Table) Close() {
	t.pager.Close()
}

// DebugTree renders the tree structure the way the `.btree` meta
// command does: `- leaf (size N)` or `- internal (size N)` with
// children/keys nested by indent.
func (t *Table) DebugTree() string {
	var b strings.Builder
	t.printNode(&b, btree.RootPageNum, 0)
	return b.String()
}

func (t *Table) printNode(b *strings.Builder, page uint32, indent int) {
	node := t.pager.GetPage(page)
	pad := strings.Repeat("  ", indent)

	if node.NodeType() == layout.NodeLeaf {
		fmt.Fprintf(b, "%s- leaf (size %d)\n", pad, node.NumCells())
		for i := 0; i < int(node.NumCells()); i++ {
			fmt.Fprintf(b, "%s  - %d\n", pad, node.Key(i, row.Size))
		}
		return
	}

	numKeys := int(node.NumKeys())
	fmt.Fprintf(b, "%s- internal (size %d)\n", pad, numKeys)
	for i := 0; i < numKeys; i++ {
		t.printNode(b, node.ChildAt(i), indent+1)
		fmt.Fprintf(b, "%s  - key %d\n", pad, node.InternalKey(i))
	}
	t.printNode(b, node.RightChild(), indent+1)
}
