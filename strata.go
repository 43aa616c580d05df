// Package strata is an in-process entity/component data engine. It classifies
// a dynamically changing population of entities by their exact set of
// attached types (tags, data-bearing components, and relation pairs), stores
// component data contiguously per distinct type set, and answers
// "which entities have this combination of types" queries incrementally via
// an observer-maintained filter cache.
//
// A World is a single-threaded data structure with a library-style API. Type
// identities are allocated by a process-wide registry and shared across
// worlds; everything else is world-local.
package strata
