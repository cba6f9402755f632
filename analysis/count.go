// Package analysis implements the pure IR→Result analyses over a kernel
// body: statement counting, statement gathering, SNode read/write sets, uniquely
// accessed pointers, CFG construction, live-variable analysis, and the
// offline-cache key. None of these mutate the IR.
package analysis

import "github.com/Genesis-Embodied-AI/quadrants/ir"

// CountStatements returns the total statement count, including containers
// and the statements nested inside them.
func CountStatements(root ir.IRNode) int {
	count := 0
	v := ir.NewVisitor()
	v.Generic = func(*ir.Statement) { count++ }
	ir.Walk(root, v)
	return count
}
