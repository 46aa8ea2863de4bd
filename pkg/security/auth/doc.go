// Package auth checks API keys on incoming API requests.
//
// Keys come from configuration. Each request presents a key through one of
// the configured sources, tried in order: a header, optionally with a scheme
// prefix such as "Bearer", or a query parameter. The name of the matching
// key is stored on the request context.
package auth
