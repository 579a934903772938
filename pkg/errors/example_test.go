package errors_test

import (
	"fmt"

	"github.com/graphpad/graphpad/pkg/errors"
)

func ExampleNew() {
	// Create a structured error with a machine-readable code
	err := errors.New(errors.ErrCodeInvalidLayout, "unknown layout engine: %s", "spiral")

	fmt.Println(err)
	fmt.Println("code:", errors.GetCode(err))
	// Output:
	// INVALID_LAYOUT: unknown layout engine: spiral
	// code: INVALID_LAYOUT
}

func ExampleWrap() {
	// Wrap an engine failure with context
	cause := fmt.Errorf("wasm trap")
	err := errors.Wrap(errors.ErrCodeRenderFailed, cause, "render %q", "dot")

	fmt.Println(err)
	fmt.Println("user message:", errors.UserMessage(err))
	// Output:
	// RENDER_FAILED: render "dot": wasm trap
	// user message: render "dot"
}

func ExampleSyntaxErrorLine() {
	// Graphviz reports DOT parse failures with a line reference
	line, ok := errors.SyntaxErrorLine(`syntax error in line 3 near '->'`)
	fmt.Println(line, ok)

	// Other diagnostics carry no line information
	line, ok = errors.SyntaxErrorLine("out of memory")
	fmt.Println(line, ok)
	// Output:
	// 3 true
	// 0 false
}
