// Package fingerprint derives content identities for plan nodes and keeps
// an LRU of filter results keyed by them.
//
// A step's fingerprint covers its filter type, its resolved parameters and
// the fingerprint of its input, so two steps share a fingerprint exactly
// when they would compute the same result from the same data. Source
// fingerprints come from a dataset version when the published handle
// exposes one; otherwise they are unique to the pass and nothing is reused
// across passes.
package fingerprint
