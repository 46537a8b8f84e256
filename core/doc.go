// Package core provides the foundational domain types and collaborator
// interfaces used by deskflow. It defines the core abstractions for:
//
//   - Desks (research-desk snapshots with workflow state and message history)
//   - Turns (streamed agent replies decoded into ParsedTurn values)
//   - Stream events (the closed set of line-protocol variants)
//   - Collaborator interfaces for the backend the client consumes
//     (desk reads, stage actions, turn submission, document persistence)
//
// The package intentionally keeps implementation concerns (HTTP transport,
// caching, orchestration) out of scope, exposing small interfaces to enable
// custom backends and test doubles. All exported identifiers include concise
// documentation to aid discoverability and external consumption.
package core
