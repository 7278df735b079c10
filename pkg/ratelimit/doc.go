// Package ratelimit paces upstream traffic.
//
// Pacer is the fixed pause inserted between pages, scroll passes and
// per-account lookups. SlidingWindow caps the request rate of an HTTP client.
// Neither retries: a rate-limited response aborts the scan elsewhere.
package ratelimit
