// Package dispatcher implements the three executor variants named in §4.2:
// a fixed worker pool, calling-thread (synchronous, for tests), and an
// adapter onto an externally owned event loop.
package dispatcher

import "errors"

// ErrClosed is returned by Execute once a dispatcher has been shut down;
// the mailbox reacts by force-closing itself (mailbox.forceClose), per
// §4.2/§7.
var ErrClosed = errors.New("dispatcher: closed")
