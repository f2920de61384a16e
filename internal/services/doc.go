// Package services defines the [Catalog] interface for the remote release catalog and implements it for the Anilibria public API.
//
// # Catalog Interface
//
// The synchronizer depends only on [Catalog], so tests substitute an in-memory fake.
//
// # Anilibria Implementation
//
// [AnilibriaService] posts form-encoded queries (list, favorites, user) to the public API endpoint.
// Responses share one envelope: a status flag, a data payload and an optional error object.
//
// Requests carry a User-Agent, are paced by a [rate.Limiter] and bounded by the client timeout.
//
// # Session
//
// [NewSessionClient] wraps an HTTP client with an [oauth2.Transport] over a static token source.
// The same token is also sent as the site's session cookie.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : favorites or user requested without a session
//   - [shared.ErrAPIRequest] : transport failure, non-2xx status, status:false envelope or undecodable body
//   - [shared.ErrInvalidArgument] : invalid page parameters or poster path
//
// Context cancellation is returned as the context's own error.
package services
