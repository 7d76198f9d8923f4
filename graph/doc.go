// Package graph provides a minimal typed state-graph runtime.
//
// A StateGraph is a set of named nodes connected by static and conditional
// edges. Each node is a function from state to state; a compiled graph is
// invoked with an initial state and runs sequentially until it reaches the
// END node. Conditional edges resolve their target at runtime from the
// current state, which is what lets a node loop back to itself - the
// mechanism the rag package uses for its bounded retrieval loop.
package graph
