// Package events implements hierarchical event dispatch.
//
// A Target owns a Registry of listeners and may have a parent. Dispatching on
// a target builds the ancestor chain once and then runs three phases:
//
//	capture  root ... parent   (capture listeners)
//	target   target            (capture listeners, then bubble listeners)
//	bubble   parent ... root   (bubble listeners)
//
// StopPropagation skips every target not yet visited. The dispatch result is
// false when any listener returned false or the return value was suppressed.
//
// Sources that only offer add/remove-callback primitives (NativeSource) are
// reached through a Bridge, which keeps their registries in a side table and
// installs one Proxy per listener on the native side.
//
// Listener lists are copied before each firing pass, so listeners may listen,
// unlisten, and dispatch again from inside a handler. Nothing in this package
// is safe for concurrent mutation; dispatch is synchronous.
package events
