// Package docsync keeps a locally edited desk document converged with the
// backend's persisted copy. The controller loads persisted content once per
// desk, replaces the local buffer whenever a fresh agent message indicates
// the backend rewrote the document, and autosaves local edits behind a
// trailing-edge debounce. Conflicts always resolve in favor of the persisted
// (agent) content; the two sides are never merged.
package docsync
