// Package middleware holds the net/http middleware wrapped around the
// local API's gin engine.
package middleware

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain applies mws so that the first one sees the request first.
func Chain(mws ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := range mws {
			h = mws[len(mws)-1-i](h)
		}
		return h
	}
}
