// Package scheduler runs a compiled plan against an output registry.
//
// # How It Works
//
// Every node starts with a counter of unfinished dependencies. Nodes whose
// counter is zero are queued on a ready channel, and a pool of workers
// drains it:
//  1. A worker takes a ready node and resolves its input from the output
//     registry.
//  2. It invokes the node's filter, or reuses a result from the fingerprint
//     cache when one is configured.
//  3. On success the result is installed under the node's registry key and
//     every dependent whose counter drops to zero is queued.
//  4. On failure the key is failed and the whole dependent subtree is marked
//     skipped. Independent branches keep running.
//
// With one worker, nodes run one at a time in a deterministic topological
// order. With more, independent branches run concurrently; the output
// registry is the only shared state they touch.
//
// # Cancellation
//
// Workers check the context before each node. Once it is cancelled, no new
// invocation starts; remaining nodes are recorded as cancelled. Invocations
// already in flight are left to finish.
package scheduler
