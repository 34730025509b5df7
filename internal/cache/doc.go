// Package cache holds chapter documents between loads: parsed documents in an
// in-memory LRU, and raw fetched documents on disk across sessions.
package cache
