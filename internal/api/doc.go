// Package api adapts HTTP requests to engine requests. Handlers parse path
// parameters and JSON bodies, validate them, dispatch to the engine on behalf
// of the authenticated identity and write the result envelope with a status
// derived from its code.
package api
