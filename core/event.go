package core

// StreamEvent represents one decoded line of a turn's accumulated text.
// Concrete event types implement the unexported isStreamEvent marker enabling
// a closed set; Unknown is the mandatory fallback arm for lines whose
// discriminator is missing, unrecognized or unparseable.
type StreamEvent interface{ isStreamEvent() }

// ThinkingEvent carries a fragment of the agent's visible reasoning.
type ThinkingEvent struct {
	Content string
}

func (ThinkingEvent) isStreamEvent() {}

// ToolCallsStartEvent announces the tools the agent is about to run, in order.
type ToolCallsStartEvent struct {
	Tools []string
}

func (ToolCallsStartEvent) isStreamEvent() {}

// ToolResultEvent reports the outcome of a previously announced tool call.
type ToolResultEvent struct {
	Tool    string
	Content string
}

func (ToolResultEvent) isStreamEvent() {}

// AnswerChunkEvent is an incremental fragment of the final answer.
type AnswerChunkEvent struct {
	Content string
}

func (AnswerChunkEvent) isStreamEvent() {}

// AnswerEvent is a complete (non-chunked) answer emitted in one line.
type AnswerEvent struct {
	Content string
}

func (AnswerEvent) isStreamEvent() {}

// ErrorEvent surfaces a backend-reported failure inside the stream.
type ErrorEvent struct {
	Content string
}

func (ErrorEvent) isStreamEvent() {}

// UnknownEvent wraps a line that did not match any structured form. Raw text
// degrades to visible answer output rather than being dropped.
type UnknownEvent struct {
	Raw string
}

func (UnknownEvent) isStreamEvent() {}
