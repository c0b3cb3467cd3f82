// Package remote provides the HTTP implementation of the storage
// contract, backed by a remote config service.
//
// # Protocol
//
// Each contract operation maps to exactly one request: POST /config/get
// and /config/cogs, PUT /config/set, /config/clear, /config/increment,
// /config/toggle, and /config/clear_all (which requires an explicit
// confirmation query parameter). Request bodies carry the identifier's
// ordered path segments plus the value and default where relevant;
// successful responses carry the result under a "value" key, except for
// get which returns the stored payload directly. Any non-200 response
// is surfaced as a backend error carrying the raw body as diagnostic
// text.
//
// # Authorization
//
// A single bearer-style token is attached to every request header. An
// empty token means the service requires no authorization.
//
// # Codec
//
// Bodies are encoded through a pluggable Codec: json-iterator by
// default, with the standard library as the pure fallback. The
// difference is invisible to callers.
package remote
