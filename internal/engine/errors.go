// Package engine is the thin orchestration facade over the store, search,
// extraction, ingest, and scanner packages — the single surface the CLI and
// the MCP server call into.
package engine

import "errors"

// ErrServiceUnavailable signals that the embedding endpoint or LLM extractor
// could not be reached, or timed out.
var ErrServiceUnavailable = errors.New("engine: service unavailable")

// ErrProtocolError signals a malformed response from an external service
// (embedding endpoint, LLM extractor) that did reply, but not sensibly.
var ErrProtocolError = errors.New("engine: protocol error")

// ErrUnknownKind signals a kind argument outside the closed set of entity
// kinds the facade understands.
var ErrUnknownKind = errors.New("engine: unknown kind")
