package provider

import "errors"

// ErrNotFound is returned by Resolve when no live node answers to the
// given address, per §4.3 ("a resolve of a terminated or never-spawned
// address fails rather than returning a usable ref").
var ErrNotFound = errors.New("actor not found")
