// Package testutil provides mock filter collaborators shared by the tests of
// the builder, the scheduler and the engine.
package testutil
