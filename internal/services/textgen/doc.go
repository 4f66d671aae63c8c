// Package textgen wraps the OpenRouter chat completion API behind a small
// JSON-only client.
//
// Content analysis, script generation, and visual cue planning all talk to the
// model through CompleteJSON, which forces a JSON response format, retries
// transient failures with capped exponential backoff (honoring Retry-After),
// and tolerates the schema quirks some providers exhibit (delta messages,
// legacy text fields, tool-call arguments). DecodeLLMJSON strips code fences
// and extracts embedded objects before unmarshalling, since models routinely
// wrap payloads in markdown.
package textgen
