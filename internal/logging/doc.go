// Package logging builds the shared zap logger for patternd.
//
// Components receive a *zap.Logger at construction; there is no package
// global. Context helpers attach per-request fields (query id) so every
// log line from one search carries the same correlation id.
package logging
