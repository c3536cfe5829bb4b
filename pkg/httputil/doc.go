// Package httputil provides the HTTP plumbing shared by the API clients and the ops server.
//
// # Overview
//
// Outbound calls to Auth0 and Grafana go through DoJSON, which encodes the request body,
// executes the request and classifies failures into a tagged *Error. Callers branch on the
// error kind instead of raw status codes.
//
// # Error Kinds
//
//	KindTransport      network failures and 5xx responses
//	KindAuthorization  401 responses
//	KindRateLimit      429 responses
//	KindValidation     any other 4xx response
//
// Matching on a kind:
//
//	switch httputil.KindOf(err) {
//	case httputil.KindRateLimit:
//		// back off and retry
//	case httputil.KindAuthorization:
//		// re-authenticate
//	}
//
// # Ops Server Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, status)
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.LoggingMiddleware(logger),
//	)(router)
//
// # Related Packages
//
//   - pkg/auth0: identity provider client
//   - pkg/grafana: dashboard client
package httputil
