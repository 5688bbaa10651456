// Package login implements the session/login state machine: classification
// of authentication state from noisy page signals, a persisted cooldown
// policy keyed by blocked-login reason, and a strictly single-use credential
// submission procedure.
//
// # Decision order
//
// EnsureLoggedIn restores and classifies first, then consults the cooldown
// record, then (interactive mode only) escalates to exactly one credential
// attempt per session. Classified blocks update the cooldown record and
// surface as *BlockedError with captured evidence; a verified success resets
// the record and snapshots the session's storage state.
//
// # Signal trust
//
// Classification ranks structural evidence (writer surface, authenticated
// chrome) and auth cookies above URL evidence. A login-looking URL on its own
// is never proof of a logged-out state: transient redirects and client-side
// routing produce them on healthy sessions.
package login
