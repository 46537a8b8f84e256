// Package stream decodes the line-delimited turn protocol and drives the
// incremental read loop over a turn's chunk source. The decoder is a pure
// function over the full accumulated text so every recomputation from the
// same input yields the same ParsedTurn; the reader owns chunk accumulation,
// cooperative cancellation and the per-desk single-turn guard.
package stream
