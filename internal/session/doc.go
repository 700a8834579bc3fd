// Package session holds the state of one control panel: parameters, the
// geometry editor, results of the external services, notices and the status
// of each long-running action.
//
// All views (terminal panel, HTTP API, websocket clients) mutate a Session
// through its methods and render from Snapshots. Every action kind runs at
// most once at a time; a second request while one is pending fails with
// ErrBusy rather than superseding the first.
package session
