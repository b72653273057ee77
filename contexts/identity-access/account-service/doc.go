// Package accountservice implements user accounts and session login.
//
// It authenticates voters and staff for the polls API and reports login,
// logout and failed login attempts as outbox events. The voting context only
// ever sees the resulting user id and staff flag.
package accountservice
