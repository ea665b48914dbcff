package devtools

import "errors"

var (
	// ErrUnknownStore is returned by Jump when no live container has the
	// requested name.
	ErrUnknownStore = errors.New("unknown store")

	// ErrUnknownMessage is reported to websocket clients that send a
	// message type the bridge does not handle.
	ErrUnknownMessage = errors.New("unknown message type")
)
