// Package browser provides the controlled browser session layer through
// Playwright.
//
// The package is built around four concepts:
//
//  1. ProfileStore: a profile directory and its derived files (storage-state
//     snapshot, web-storage snapshot, cooldown record, lock markers)
//  2. Handle: an exclusively-owned browser session bound to a profile
//  3. Launcher: bounded-retry session creation, persistent or ephemeral
//  4. Probes: ordered, data-driven capability checks over an unstable page
//
// # Ownership
//
// A Handle belongs to exactly one caller and must be closed on every exit
// path. Operations against the same account are serialized by AccountLocks;
// foreign browser processes holding the same profile are detected through
// lock markers before launch rather than discovered mid-run.
//
// # Session restore
//
// Ephemeral sessions restore in two layers: cookies and origins come from
// the storage-state file handed to the new context, and the saved per-origin
// web storage is replayed by an init script at page-load time so client-side
// state survives profile teardown and recreation.
package browser
