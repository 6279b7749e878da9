// Package llm provides a chat client for OpenAI-compatible model endpoints.
//
// This package is used by:
//   - Agent decision calls: a vision model inspects a screenshot and picks the
//     next browser action via tool calls.
//   - Agent grounding calls: a coordinate model maps an element description to
//     screen coordinates.
//
// # Requests
//
// Chat accepts plain text messages, multimodal messages carrying a PNG
// screenshot, and optional tool schemas. Images are inlined as base64 data
// URLs, which both hosted gateways and local model servers accept.
//
// # Configuration
//
// Requires model and optionally api_key, base_url, referer, title, timeout.
// The base URL defaults to a local model server; the /chat/completions path is
// appended when missing.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Chat: send a chat completion request, receive content and tool calls.
// Client.HealthCheck: verify the endpoint and model respond.
// DecodeToolJSON: parse JSON argument payloads with fence stripping.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 3 attempts by default).
// Context cancellation aborts retries immediately.
package llm
