package dag

import "sync"

// Graph is a set of string-identified nodes joined by "consumes" edges. An
// edge from A to B means B consumes the output of A. All methods are safe for
// concurrent use.
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
}

// node is kept unexported so callers address nodes by id only.
type node struct {
	id string
	// deps are the producers this node consumes.
	deps map[string]*node
	// dependents are the consumers of this node's output.
	dependents map[string]*node
}
