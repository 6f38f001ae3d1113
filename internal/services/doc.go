// Package services wires application configuration to the shared service
// instance registry.
//
// The Provider translates config sections into normalized registry keys
// and supplies the factories that dial the real backends. Consumers ask
// the Provider for a client; whether that hands back a cached instance or
// dials a new one is the registry's concern.
package services
