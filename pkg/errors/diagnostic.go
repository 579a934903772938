package errors

import (
	"regexp"
	"strconv"
	"strings"
)

// Graphviz reports DOT parse failures as e.g.
// "syntax error in line 3 near '->'".
var syntaxErrorRe = regexp.MustCompile(`syntax error in line (\d+)`)

// SyntaxErrorLine extracts the 1-based line number from a layout engine
// diagnostic. Returns 0 and false when the diagnostic is not a syntax error
// with a recognizable line reference.
//
// Hosts use this to place an error marker next to the offending line in the
// editor gutter.
func SyntaxErrorLine(diagnostic string) (int, bool) {
	captures := syntaxErrorRe.FindStringSubmatch(strings.TrimSpace(diagnostic))
	if captures == nil {
		return 0, false
	}
	line, err := strconv.Atoi(captures[1])
	if err != nil || line < 1 {
		return 0, false
	}
	return line, true
}
