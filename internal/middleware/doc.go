// Package middleware provides HTTP middleware for the media filter service.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics with bounded path cardinality
//   - gzip compression of JSON responses
//
// Every response writer wrapper here passes Hijack through, so the WebSocket
// push channel works behind the full middleware chain.
package middleware
