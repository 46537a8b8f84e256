// Package deskcache provides a TTL-bounded in-memory store for desk
// snapshots, including optimistic message appends between a turn submission
// and the next authoritative refetch.
package deskcache
