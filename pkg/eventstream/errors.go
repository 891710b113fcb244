package eventstream

import "errors"

// ErrNilAnswerEvent indicates a nil answer event was provided to a publisher.
var ErrNilAnswerEvent = errors.New("nil answer event")
