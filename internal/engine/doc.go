// Package engine runs one execution pass: it validates an action tree,
// compiles it into a plan, schedules the plan and releases every output
// when the pass ends, whatever happened before.
package engine
