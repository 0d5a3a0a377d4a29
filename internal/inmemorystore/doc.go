// Package inmemorystore provides a thread-safe, in-memory implementation
// of the cachestore.Store interface. It is suitable for tests, --no-cache
// runs that still want reuse within one process, and watch mode.
package inmemorystore
