package stream

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/introlix/deskflow/core"
)

// errorResultPrefix marks a tool result whose content is a failure report.
const errorResultPrefix = "Error"

// Decode derives a ParsedTurn from the full text accumulated so far for one
// streamed turn. live indicates more chunks may still arrive, which defers a
// trailing partial structured line to the next recomputation instead of
// folding it into the answer as plain text.
//
// Decode is deterministic: it keeps no state between calls, so decoding the
// same accumulated text twice yields identical ParsedTurn values.
func Decode(accumulated string, live bool) core.ParsedTurn {
	var turn core.ParsedTurn
	var answer strings.Builder

	lines := strings.Split(accumulated, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		ev := DecodeLine(line)
		if u, ok := ev.(core.UnknownEvent); ok {
			if live && i == len(lines)-1 && strings.HasPrefix(strings.TrimSpace(line), "{") {
				// Incomplete structured line still being received; the next
				// chunk completes it.
				continue
			}
			answer.WriteString(u.Raw)
			answer.WriteString("\n")
			continue
		}
		applyEvent(&turn, &answer, ev)
	}

	turn.AnswerText = answer.String()

	return turn
}

// DecodeLine classifies one non-empty line into its StreamEvent variant.
// Lines that are not a JSON object, or that parse but match no structured
// form, come back as UnknownEvent so callers can apply the plain-text
// fallback.
func DecodeLine(line string) core.StreamEvent {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return core.UnknownEvent{Raw: line}
	}

	switch gjson.Get(trimmed, "type").String() {
	case "thinking":
		return core.ThinkingEvent{Content: gjson.Get(trimmed, "content").String()}
	case "tool_calls_start":
		var tools []string
		for _, t := range gjson.Get(trimmed, "tools").Array() {
			tools = append(tools, t.String())
		}
		return core.ToolCallsStartEvent{Tools: tools}
	case "tool_result":
		return core.ToolResultEvent{
			Tool:    gjson.Get(trimmed, "tool").String(),
			Content: gjson.Get(trimmed, "content").String(),
		}
	case "answer_chunk":
		return core.AnswerChunkEvent{Content: gjson.Get(trimmed, "content").String()}
	case "answer":
		return core.AnswerEvent{Content: gjson.Get(trimmed, "content").String()}
	case "error":
		return core.ErrorEvent{Content: gjson.Get(trimmed, "content").String()}
	default:
		// Unrecognized kind: salvage a content payload when present, treat
		// the whole line as plain text otherwise.
		if c := gjson.Get(trimmed, "content"); c.Exists() {
			return core.AnswerChunkEvent{Content: c.String()}
		}
		return core.UnknownEvent{Raw: line}
	}
}

// DecodeEvents returns the per-line event classification for the accumulated
// text, without any of the fallback folding Decode applies. Surfaces use it
// to render raw protocol traffic.
func DecodeEvents(accumulated string) []core.StreamEvent {
	var events []core.StreamEvent
	for _, line := range strings.Split(accumulated, "\n") {
		if line == "" {
			continue
		}
		events = append(events, DecodeLine(line))
	}
	return events
}

func applyEvent(turn *core.ParsedTurn, answer *strings.Builder, ev core.StreamEvent) {
	switch e := ev.(type) {
	case core.ThinkingEvent:
		turn.Thoughts = append(turn.Thoughts, e.Content)
	case core.ToolCallsStartEvent:
		for _, name := range e.Tools {
			turn.ToolCalls = append(turn.ToolCalls, core.ToolCallRecord{
				Name:   name,
				Status: core.ToolCallRunning,
			})
		}
	case core.ToolResultEvent:
		resolveToolResult(turn, e)
	case core.AnswerChunkEvent:
		answer.WriteString(e.Content)
	case core.AnswerEvent:
		answer.WriteString(e.Content)
	case core.ErrorEvent:
		fmt.Fprintf(answer, "[error] %s\n", e.Content)
	}
}

// resolveToolResult marks the first still-running record with the matching
// name (FIFO). A result with no running match appends a new record directly
// in its terminal status: the backend can emit results for calls whose start
// line was never observed, and dropping those would hide completed work.
func resolveToolResult(turn *core.ParsedTurn, ev core.ToolResultEvent) {
	status := core.ToolCallCompleted
	if strings.HasPrefix(ev.Content, errorResultPrefix) {
		status = core.ToolCallError
	}

	for i := range turn.ToolCalls {
		rec := &turn.ToolCalls[i]
		if rec.Name == ev.Tool && rec.Status == core.ToolCallRunning {
			rec.Status = status
			rec.Result = ev.Content
			return
		}
	}

	turn.ToolCalls = append(turn.ToolCalls, core.ToolCallRecord{
		Name:   ev.Tool,
		Status: status,
		Result: ev.Content,
	})
}
