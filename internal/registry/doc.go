// Package registry provides the Filter Registry: the lookup table from a
// filter-type name to the capability descriptor published by the external
// collaborator that implements it.
//
// Collaborators populate a Registry once at startup through their Module's
// Register method. The host then seals it, after which it is read-only and
// can be shared by any number of concurrent passes. The core never hard-codes
// filter semantics; everything it knows about a type comes from the
// Descriptor: its role, its ports, its parameter contract and its Invoke
// function.
package registry
