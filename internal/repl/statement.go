// Package repl implements the interactive front end: line reading,
// command tokenizing, statement dispatch, and usage messages. None of
// the core's persistence logic lives here — this package only
// validates input and calls through to internal/engine.
package repl

import (
	"fmt"
	"strconv"
	"strings"

	"leafbase/internal/row"
)

// PrepareResult classifies the outcome of parsing one input line into
// a statement.
type PrepareResult int

const (
	PrepareSuccess PrepareResult = iota
	PrepareUnrecognizedStatement
	PrepareSyntaxError
	PrepareNegativeID
	PrepareStringTooLong
)

// StatementType enumerates the four statements the parser recognizes.
// update/delete parse successfully but execute as no-ops.
type StatementType int

const (
	StatementInsert StatementType = iota
	StatementSelect
	StatementUpdate
	StatementDelete
)

// Statement is the parsed, validated request handed to the executor.
type Statement struct {
	Type StatementType
	Row  row.Row
}

// PrepareStatement tokenizes input and validates it against the fixed
// schema: id must parse as a non-negative decimal integer; username
// <= 32 bytes; email <= 255 bytes.
func PrepareStatement(input string) (Statement, PrepareResult) {
	switch {
	case strings.HasPrefix(input, "insert"):
		return prepareInsert(input)
	case input == "select":
		return Statement{Type: StatementSelect}, PrepareSuccess
	case input == "update" || strings.HasPrefix(input, "update "):
		return Statement{Type: StatementUpdate}, PrepareSuccess
	case input == "delete" || strings.HasPrefix(input, "delete "):
		return Statement{Type: StatementDelete}, PrepareSuccess
	default:
		return Statement{}, PrepareUnrecognizedStatement
	}
}

func prepareInsert(input string) (Statement, PrepareResult) {
	fields := strings.Fields(input)
	if len(fields) != 4 {
		return Statement{}, PrepareSyntaxError
	}

	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Statement{}, PrepareSyntaxError
	}
	if id < 0 {
		return Statement{}, PrepareNegativeID
	}

	username, email := fields[2], fields[3]
	if len(username) > row.MaxUsernameLen || len(email) > row.MaxEmailLen {
		return Statement{}, PrepareStringTooLong
	}

	return Statement{
		Type: StatementInsert,
		Row:  row.Row{ID: uint32(id), Username: username, Email: email},
	}, PrepareSuccess
}

// ErrorMessage renders the user-facing text for a non-success
// PrepareResult.
func (r PrepareResult) ErrorMessage(input string) string {
	switch r {
	case PrepareNegativeID:
		return "ID must be positive."
	case PrepareStringTooLong:
		return "String is too long."
	case PrepareSyntaxError:
		return "Syntax error. Could not parse statement."
	case PrepareUnrecognizedStatement:
		return fmt.Sprintf("Unrecognized keyword at start of '%s'.", input)
	default:
		return ""
	}
}
