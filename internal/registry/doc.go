// Package registry provides the shared service instance registry.
//
// The registry guarantees at most one live client instance per unique
// configuration and hands the same instance to every consumer that
// requests an equal key. Four categories are managed (embedding,
// document store, cache store, credential store); all share one generic
// keyed-singleton cache parameterized by key type and factory signature.
//
// Keys are normalized value types: two semantically identical
// configurations always produce equal keys, and any differing key field
// produces a distinct instance. Factories run at most once per key under
// concurrency; creation failures are never cached and the next request
// retries from scratch.
//
// Construct one Registry at startup and pass it to every adapter. There
// is no package-level global and no eviction path; entries live until
// Close releases them at shutdown.
package registry
