// Package ratelimit implements the token bucket and concurrency limiters
// behind per-client request throttling.
//
// # Algorithm
//
// A TokenBucket holds up to capacity tokens and refills at a constant rate.
// Each request takes one token; an empty bucket rejects. A
// ConcurrentLimiter is a counting semaphore. A Limiter applies both, and a
// request rejected by the bucket gives back its concurrency slot.
//
// # Thread Safety
//
// All types are safe for concurrent use.
package ratelimit
