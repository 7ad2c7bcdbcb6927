// Package oauth implements the provider side of the login flow: PKCE session
// generation and the authorization-code / refresh-token exchanges against the
// provider's token endpoint.
package oauth
