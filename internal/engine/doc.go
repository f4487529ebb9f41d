// Package engine is the command/query surface of the progression engine.
//
// Callers build one of the request variants declared in requests.go and hand
// it to Dispatcher.Dispatch together with the caller's identity. The
// dispatcher reads the clock once, routes the request through its handler
// table, classifies any error into a result Code and returns the
// cache-invalidation tags produced by mutating commands. Errors never escape
// Dispatch; every outcome is a Result.
package engine
