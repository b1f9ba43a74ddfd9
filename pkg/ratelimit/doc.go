// Package ratelimit implements a token bucket limiter with in-memory and
// Redis stores, plus HTTP middleware keyed per tenant and client address.
//
//	limiter, err := ratelimit.NewBucket(ratelimit.NewRedisStore(client), cfg)
//	r.With(ratelimit.Middleware(limiter, ratelimit.TenantClientKey("forgot"), log)).Post("/password/forgot", h)
//
// A denied request does not consume tokens; Result.Remaining is negative
// by the shortfall.
package ratelimit
