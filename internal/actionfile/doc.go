// Package actionfile reads action trees from disk.
//
// Three formats are accepted, chosen by file extension:
//   - YAML (.yaml, .yml) and JSON (.json): the action tree as written, a
//     sequence of directives. Mapping key order is kept, so pipeline steps
//     run in the order they are written.
//   - HCL (.hcl): pipeline, extract and scene blocks, translated into the
//     equivalent directives.
//
// A directory is read as the concatenation of every supported file in it,
// in lexical path order.
package actionfile
