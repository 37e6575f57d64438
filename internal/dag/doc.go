// Package dag provides the directed acyclic graph the Graph Builder compiles
// an action tree into. Nodes are plain string ids; the payload of each node
// lives with the caller, keyed by the same id.
//
// Every query that returns a set of ids returns it in lexical order so that
// traversals built on top of the graph are deterministic.
package dag
