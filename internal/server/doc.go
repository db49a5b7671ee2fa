// Package server implements the core HTTP and WebSocket server functionality
// for RelayChat.
//
// The implementation is organized into specialized files for the hub, clients,
// sessions, wire messages, routing, and HTTP handlers to keep the codebase
// maintainable and testable as the project grows.
package server
