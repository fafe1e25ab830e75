package repl

import (
	"bytes"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"leafbase/internal/engine"
)

func openTable(t *testing.T) *engine.Table {
	t.Helper()
	return engine.Open(filepath.Join(t.TempDir(), "test.db"), 0, nil)
}

// A minimal insert/select round-trip through the statement dispatcher.
func TestHandleStatementMinimalRoundTrip(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	handleStatement(tbl, "insert 1 alice alice@x", &out)
	handleStatement(tbl, "insert 2 bob bob@y", &out)
	out.Reset()
	handleStatement(tbl, "select", &out)

	require.Equal(t, "(1, alice, alice@x)\n(2, bob, bob@y)\nExecuted.\n", out.String())
}

// Duplicate rejection leaves prior rows unchanged.
func TestHandleStatementDuplicateRejection(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	handleStatement(tbl, "insert 1 alice alice@x", &out)
	handleStatement(tbl, "insert 2 bob bob@y", &out)

	out.Reset()
	handleStatement(tbl, "insert 1 carol c@x", &out)
	require.Equal(t, "Error: Duplicate key.\n", out.String())

	out.Reset()
	handleStatement(tbl, "select", &out)
	require.Equal(t, "(1, alice, alice@x)\n(2, bob, bob@y)\nExecuted.\n", out.String())
}

// Out-of-order insertion yields ascending order on select.
func TestHandleStatementOutOfOrderInsertion(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	handleStatement(tbl, "insert 3 c c@x", &out)
	handleStatement(tbl, "insert 1 a a@x", &out)
	handleStatement(tbl, "insert 2 b b@x", &out)

	out.Reset()
	handleStatement(tbl, "select", &out)
	require.Equal(t, "(1, a, a@x)\n(2, b, b@x)\n(3, c, c@x)\nExecuted.\n", out.String())
}

// Rows persist across a close/reopen cycle.
func TestHandleStatementPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	tbl := engine.Open(path, 0, nil)
	var out bytes.Buffer
	for id := 1; id <= 10; id++ {
		handleStatement(tbl, "insert "+strconv.Itoa(id)+" u e@x", &out)
	}
	tbl.Close()

	reopened := engine.Open(path, 0, nil)
	defer reopened.Close()
	out.Reset()
	handleStatement(reopened, "select", &out)

	var want bytes.Buffer
	for id := 1; id <= 10; id++ {
		want.WriteString("(" + strconv.Itoa(id) + ", u, e@x)\n")
	}
	want.WriteString("Executed.\n")
	require.Equal(t, want.String(), out.String())
}

// A leaf split with root promotion is visible through `.btree`.
func TestHandleMetaBTreeAfterSplit(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	for id := 1; id <= 14; id++ {
		handleStatement(tbl, "insert "+strconv.Itoa(id)+" u e@x", &out)
	}

	out.Reset()
	code, exit := handleMeta(tbl, ".btree", &out, nil)
	require.False(t, exit)
	require.Equal(t, 0, code)
	require.Contains(t, out.String(), "- internal (size 1)")
	require.Contains(t, out.String(), "- leaf (size 7)")
}

// Username/email length bounds are enforced before insert.
func TestHandleStatementStringBounds(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	u32 := make([]byte, 32)
	e255 := make([]byte, 255)
	for i := range u32 {
		u32[i] = 'a'
	}
	for i := range e255 {
		e255[i] = 'b'
	}

	handleStatement(tbl, "insert 1 "+string(u32)+" "+string(e255), &out)
	require.Equal(t, "Executed.\n", out.String())

	u33 := make([]byte, 33)
	for i := range u33 {
		u33[i] = 'a'
	}
	out.Reset()
	handleStatement(tbl, "insert 2 "+string(u33)+" short@x", &out)
	require.Equal(t, "String is too long.\n", out.String())
}

func TestHandleMetaExit(t *testing.T) {
	tbl := openTable(t)
	var out bytes.Buffer

	code, exit := handleMeta(tbl, ".exit", &out, nil)
	require.True(t, exit)
	require.Equal(t, 0, code)
}

func TestHandleMetaHelpAndConstants(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	_, exit := handleMeta(tbl, ".help", &out, nil)
	require.False(t, exit)
	require.Contains(t, out.String(), "Meta commands:")

	out.Reset()
	_, exit = handleMeta(tbl, ".constants", &out, nil)
	require.False(t, exit)
	require.Contains(t, out.String(), "ROW_SIZE: 291")
}

func TestHandleMetaUnrecognized(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	_, exit := handleMeta(tbl, ".frobnicate", &out, nil)
	require.False(t, exit)
	require.Equal(t, "Unrecognized command '.frobnicate'\n", out.String())
}

func TestHandleStatementSelectOnEmptyDatabase(t *testing.T) {
	tbl := openTable(t)
	defer tbl.Close()
	var out bytes.Buffer

	handleStatement(tbl, "select", &out)
	require.Equal(t, "Executed.\n", out.String())
}
