// Package handlers contains the built-in chat and mini-app handlers.
//
// Every constructor registers the handler it builds with the registry or
// executor it is given, exactly once. Bootstrap calls them in a fixed order
// before any traffic is accepted.
//
// Files:
//   - help.go      : "/help" lists registered chat handlers
//   - ping.go      : "ping" liveness reply
//   - fallback.go  : catch-all reply used when nothing else matches
//   - eventlog.go  : level-0 mini-app handler logging every event
//   - notifier.go  : level-1 mini-app handler messaging configured recipients
package handlers
