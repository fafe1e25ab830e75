package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"leafbase/internal/btree"
	"leafbase/internal/engine"
	"leafbase/internal/layout"
	"leafbase/internal/row"
)

// Prompt is printed before each input line.
const Prompt = "db > "

// Run drives the REPL loop against an already-open table, reading
// lines through rl until `.exit` or EOF. It returns the process exit
// code: 0 on clean `.exit`, 1 on I/O failure reading input.
func Run(tbl *engine.Table, rl *readline.Instance, out io.Writer, log *zap.Logger) int {
	if log == nil {
		log = zap.NewNop()
	}
	rl.SetPrompt(Prompt)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			tbl.Close()
			return 0
		}
		if err != nil {
			log.Error("read input", zap.Error(err))
			return 1
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if code, done := handleMeta(tbl, line, out, log); done {
				return code
			}
			continue
		}

		handleStatement(tbl, line, out)
	}
}

func handleMeta(tbl *engine.Table, line string, out io.Writer, log *zap.Logger) (code int, exit bool) {
	switch DoMetaCommand(line) {
	case MetaCommandExit:
		tbl.Close()
		return 0, true
	case MetaCommandHelp:
		fmt.Fprint(out, helpText)
	case MetaCommandBTree:
		fmt.Fprint(out, tbl.DebugTree())
	case MetaCommandConstants:
		fmt.Fprint(out, constantsText())
	default:
		fmt.Fprintln(out, UnrecognizedMessage(line))
	}
	return 0, false
}

func handleStatement(tbl *engine.Table, line string, out io.Writer) {
	stmt, result := PrepareStatement(line)
	if result != PrepareSuccess {
		fmt.Fprintln(out, result.ErrorMessage(line))
		return
	}

	switch stmt.Type {
	case StatementInsert:
		if err := tbl.Insert(stmt.Row); err != nil {
			if err == btree.ErrDuplicateKey {
				fmt.Fprintln(out, "Error: Duplicate key.")
				return
			}
			fmt.Fprintln(out, "Error:", err)
			return
		}
		fmt.Fprintln(out, "Executed.")
	case StatementSelect:
		for _, r := range tbl.SelectAll() {
			fmt.Fprintf(out, "(%d, %s, %s)\n", r.ID, r.Username, r.Email)
		}
		fmt.Fprintln(out, "Executed.")
	case StatementUpdate, StatementDelete:
		// Accepted by the parser but executed as no-ops.
		fmt.Fprintln(out, "Executed.")
	}
}

func constantsText() string {
	return fmt.Sprintf(
		"ROW_SIZE: %d\nCOMMON_NODE_HEADER_SIZE: %d\nLEAF_NODE_HEADER_SIZE: %d\n"+
			"LEAF_NODE_MAX_CELLS: %d\nINTERNAL_NODE_HEADER_SIZE: %d\nINTERNAL_NODE_MAX_CELLS: %d\n",
		row.Size, layout.CommonHeaderSize, layout.LeafHeaderSize,
		btree.LeafMaxCells, layout.InternalHeaderSize, btree.InternalMaxCells,
	)
}
