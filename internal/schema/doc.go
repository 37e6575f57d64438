// Package schema is the Schema Validator. It is the single place that maps
// the shape of the action tree onto strongly typed directives.
//
// Validate never stops at the first problem. Each top-level directive, and
// each named entry inside it, is checked independently; malformed entries
// are reported and left out of the Result while their siblings are kept.
// Pipelines, extracts and scenes live in separate namespaces, and within a
// namespace the first declaration of a name wins.
package schema
