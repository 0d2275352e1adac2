// Package services implements the business logic of the notifier: the
// dispatcher bridging "send a message" and "record that it was sent", and
// the retraction protocol that reconciles history against the remote chat.
// This file centralizes service-level error values so they can be returned
// consistently and checked by callers with errors.Is.
package services

import "errors"

// ErrTransport indicates the remote chat service was unreachable or
// rejected a call. Terminal for the call that raised it; the dispatcher
// never retries.
var ErrTransport = errors.New("transport failure")
