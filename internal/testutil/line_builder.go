package testutil

import (
	"strings"

	"github.com/tidwall/sjson"
)

// LineBuilder provides a fluent helper for composing raw streaming protocol
// payloads in tests. Example:
//
//	raw := NewLineBuilder().Thinking("planning").AnswerChunk("Hel").AnswerChunk("lo").Build()
//
// Build joins the lines with "\n", matching what a transport accumulates.
type LineBuilder struct {
	lines []string
}

// NewLineBuilder creates an empty builder.
func NewLineBuilder() *LineBuilder { return &LineBuilder{} }

// Thinking appends a thinking event line (chainable).
func (b *LineBuilder) Thinking(content string) *LineBuilder {
	return b.event("thinking", map[string]any{"content": content})
}

// ToolCallsStart appends a tool_calls_start event line announcing the named
// tools (chainable).
func (b *LineBuilder) ToolCallsStart(tools ...string) *LineBuilder {
	return b.event("tool_calls_start", map[string]any{"tools": tools, "count": len(tools)})
}

// ToolResult appends a tool_result event line (chainable).
func (b *LineBuilder) ToolResult(tool, content string) *LineBuilder {
	return b.event("tool_result", map[string]any{"tool": tool, "content": content})
}

// AnswerChunk appends an answer_chunk event line (chainable).
func (b *LineBuilder) AnswerChunk(content string) *LineBuilder {
	return b.event("answer_chunk", map[string]any{"content": content})
}

// Answer appends a final answer event line (chainable).
func (b *LineBuilder) Answer(content string) *LineBuilder {
	return b.event("answer", map[string]any{"content": content})
}

// Error appends an error event line (chainable).
func (b *LineBuilder) Error(content string) *LineBuilder {
	return b.event("error", map[string]any{"content": content})
}

// Raw appends an arbitrary line verbatim, useful for malformed input
// (chainable).
func (b *LineBuilder) Raw(line string) *LineBuilder {
	b.lines = append(b.lines, line)
	return b
}

func (b *LineBuilder) event(typ string, fields map[string]any) *LineBuilder {
	line, _ := sjson.Set("", "type", typ)
	for k, v := range fields {
		line, _ = sjson.Set(line, k, v)
	}
	b.lines = append(b.lines, line)
	return b
}

// Build joins the accumulated lines with newlines.
func (b *LineBuilder) Build() string {
	return strings.Join(b.lines, "\n")
}

// Lines returns a copy of the individual lines, each with a trailing newline,
// as a transport would deliver them chunk by chunk.
func (b *LineBuilder) Lines() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = l + "\n"
	}
	return out
}
