// Package store holds the in-memory student roster. It provides a thread-safe
// name-to-branch map with insert-or-replace, remove and point-in-time snapshot
// reads. Nothing is persisted; the data lives as long as the process.
package store
