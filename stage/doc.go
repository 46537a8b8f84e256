// Package stage walks a research desk through its backend-driven workflow.
// The machine observes desk snapshots as the read path delivers them and
// fires the stage's automatic remote action at most once per (desk, state)
// pair; the action's side effect is a state advance observed on a later
// snapshot, which in turn arms the next stage. Plan approval and retries are
// explicit user commands and bypass the one-shot guard.
package stage
