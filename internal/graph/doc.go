// Package graph is the Graph Builder. It compiles the typed directives
// produced by the schema validator into a Plan: a DAG of source, step,
// extract and plot nodes whose edges mean "consumes the output of".
//
// Building never fails as a whole. A pipeline whose steps cannot be
// resolved against the filter registry is pruned together with everything
// that consumes it; a pipeline that consumes its own output through a chain
// of other pipelines is pruned as a cycle before anything runs; every other
// branch is kept.
package graph
