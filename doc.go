// Package secrets implements the authentication and data layer for a small
// secret-sharing web application.
//
// Users register with local credentials or sign in through Google or
// Facebook OAuth; authenticated users may each share a single secret, and
// the shared secrets are listed publicly.
//
// # Architecture
//
// UserStore: the persistence contract for the single User entity. Two
// backends exist: a JSON-file store (package stores) and a GORM-backed store
// (package stores/gorm).
//
// LocalAuth: username/password signup and login handlers. Passwords are
// bcrypt hashed; failures flow through pluggable AuthErrorHandlers so the
// web layer can answer with redirects.
//
// SessionManager: the Anonymous/Authenticated session state machine. Login
// stores the user id in an scs session and a signed JWT cookie; ExtractUser
// restores an explicit Session value on every request.
//
// The oauth2 subpackage holds the Google and Facebook strategies, and the
// web subpackage wires everything to the HTTP route table.
package secrets
