// Package dedupe tracks recently redeemed OAuth authorization codes.
//
// A browser refresh on the callback page, or two tabs racing, would otherwise
// send the same single-use code to the token endpoint twice. The gateway
// claims each code before exchanging it and releases the claim when the
// exchange fails, so only one redemption is ever in flight.
//
// Codes are stored as SHA-256 digests and forgotten after the TTL.
package dedupe
