// Package events carries cache-invalidation signals out of the engine.
//
// Mutating operations return invalidation tags as part of their result; the
// dispatcher wraps them in an InvalidationEvent and emits it through an
// EventEmitter. Handlers decide where the tags go: LogHandler records them and
// RedisPublisher publishes them on a Redis channel for the external cache
// layer. The engine itself never touches cache storage.
package events
