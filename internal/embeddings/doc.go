// Package embeddings provides embedding generation clients.
//
// Clients speak the OpenAI-compatible embeddings API via langchaingo,
// which covers Ollama (/v1 endpoint), TEI, and OpenAI itself. Provider
// instances are created through registry factories and shared by every
// consumer with an equal configuration.
package embeddings
