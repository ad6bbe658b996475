// Package auth verifies bearer tokens presented to the control server.
//
// Tokens are JWTs signed with HS256 (shared secret) or RS256 (PEM public
// key) and carry a subject and a non-empty roles claim. A viewer may read
// keyer status; a controller may also send frames.
package auth
