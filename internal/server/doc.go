// Package server implements the WebSocket transport and HTTP surface of the
// room relay.
//
// A single Hub goroutine owns the chat router and every registered Client.
// Clients decode frames in their read pumps and hand them to the hub, which
// routes them and queues the resulting events on each recipient's bounded
// send channel. Configuration, origin checks, rate limiting, metrics, and the
// HTTP handlers live in their own files.
package server
