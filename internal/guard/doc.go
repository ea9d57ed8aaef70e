// Package guard keeps the two sync directions from re-triggering each other.
//
// Every write the engine issues runs inside Guard.Do, which stamps the
// context with an Origin naming the direction that issued it. Both stores
// deliver change notifications synchronously with the writer's context, so
// the listener for the opposite direction sees the Origin and drops the
// notification.
//
// This replaces toggling listener registration around each write. The
// suppression is scoped to one call chain: a concurrent, unrelated write on
// another goroutine carries its own context and is still delivered.
//
// Thread-safety: Guard is safe for concurrent use.
package guard
