// Package query classifies raw queries and derives retrieval blend weights.
//
// Both the analyzer and the alpha tuner are pure functions of the query
// string; nothing here touches I/O or shared state.
package query
