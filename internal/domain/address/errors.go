package address

import "errors"

// ErrInvalidName is returned when a path segment violates the grammar of
// §4.3: empty, too long, an illegal rune, or using the reserved
// auto-naming prefix from a non-internal spawn.
var ErrInvalidName = errors.New("invalid name")

// ErrNameAlreadyInUse is returned when an explicit child name collides
// with a live sibling under the same parent.
var ErrNameAlreadyInUse = errors.New("name already in use")
