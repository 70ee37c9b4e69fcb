// Package authenticator declares the middleware contract the router
// expects from the authentication layer, so tests can substitute it.
package authenticator

import "net/http"

// Authenticator guards protected routes and injects the acting user's ID
// into the request context.
type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}
