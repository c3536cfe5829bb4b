// Package auth0 talks to the Auth0 Management API.
//
// # Overview
//
// Provider performs the client-credentials exchange and returns a Client bound to the
// resulting bearer token. The token is never refreshed in place: when Auth0 starts
// answering 401 the caller obtains a fresh Client through Authenticate.
//
//	provider := auth0.NewProvider(auth0.Config{
//		Domain:       "https://screepsplus.auth0.com",
//		ClientID:     id,
//		ClientSecret: secret,
//	})
//	client, err := provider.Authenticate(ctx)
//	users, err := client.SearchUsers(ctx, auth0.EmailQuery("bob@example.com"))
//
// Errors are *httputil.Error values tagged with Service "auth0".
package auth0
