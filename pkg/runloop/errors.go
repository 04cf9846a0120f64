package runloop

import "errors"

// ErrIterationLimit is returned (wrapped) when a loop exhausts its iteration
// ceiling without reaching a terminal state.
var ErrIterationLimit = errors.New("iteration limit exceeded")
